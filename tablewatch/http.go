package tablewatch

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/tablewatch/shield"
)

// Version is reported by the MCP server.
const Version = "0.1.0"

// Handler serves the session status:
//
//	GET /health  liveness
//	GET /status  Status as JSON
//	GET /heartbeat  latest liveness row, when a sqlite sink is configured
//	/mcp         MCP streamable HTTP, when cfg.Status.MCP is set
func (r *Runner) Handler() http.Handler {
	rt := chi.NewRouter()
	rt.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultStack(r.logger) {
		rt.Use(mw)
	}

	rt.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	rt.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, r.Status())
	})

	if r.hbDB != nil {
		rt.Get("/heartbeat", func(w http.ResponseWriter, req *http.Request) {
			hs, err := r.Heartbeat(req.Context())
			switch {
			case err != nil:
				shield.Logger(req.Context()).Error("tablewatch: heartbeat query", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			case hs == nil:
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"alive": false})
			default:
				writeJSON(w, http.StatusOK, hs)
			}
		})
	}

	if r.cfg.Status.MCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "tablewatch", Version: Version}, nil)
		r.RegisterMCP(srv)
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
		rt.Handle("/mcp", h)
		rt.Handle("/mcp/*", h)
	}
	return rt
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
