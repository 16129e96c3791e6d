package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceNames accepts the CDP type names, lower-cased, plus the plurals
// used in config files.
var resourceNames = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"scripts":     proto.NetworkResourceTypeScript,
	"media":       proto.NetworkResourceTypeMedia,
}

func init() {
	for _, t := range []proto.NetworkResourceType{
		proto.NetworkResourceTypeDocument,
		proto.NetworkResourceTypeStylesheet,
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeMedia,
		proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeScript,
		proto.NetworkResourceTypeTextTrack,
		proto.NetworkResourceTypeXHR,
		proto.NetworkResourceTypeFetch,
		proto.NetworkResourceTypePrefetch,
		proto.NetworkResourceTypeEventSource,
		proto.NetworkResourceTypeWebSocket,
		proto.NetworkResourceTypeManifest,
		proto.NetworkResourceTypePing,
		proto.NetworkResourceTypeOther,
	} {
		resourceNames[strings.ToLower(string(t))] = t
	}
}

// blockList is the set of resource types a tab refuses to load.
type blockList map[proto.NetworkResourceType]bool

// newBlockList resolves configured names. Names it does not know are
// returned so the caller can report them.
func newBlockList(names []string) (blockList, []string) {
	bl := make(blockList, len(names))
	var unknown []string
	for _, n := range names {
		t, ok := resourceNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		bl[t] = true
	}
	return bl, unknown
}

// hijack installs the list on page. Returns nil when nothing is blocked.
// The game socket is a WebSocket and never passes through Fetch, so it is
// unaffected whatever the list holds.
func (bl blockList) hijack(page *rod.Page) *rod.HijackRouter {
	if len(bl) == 0 {
		return nil
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if bl[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
