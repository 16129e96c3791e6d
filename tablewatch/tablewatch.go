// Package tablewatch signs in to an online belote client as a spectator,
// hunts for a tournament table among the spectatable tables, then watches
// it and reports every round that starts.
//
// tablewatch observes, it does not play. Hunt outcomes, seatings and round
// starts are emitted to sinks (stdout, webhook, callback, sqlite).
package tablewatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/tablewatch/idgen"
	"github.com/hazyhaar/tablewatch/observability"
	"github.com/hazyhaar/tablewatch/tablewatch/event"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/browser"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/config"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/hunter"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/login"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/observer"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/players"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/policy"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/round"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/sink"
)

// ErrNoTable is returned by Run when the hunt ends without a tournament
// table, either because the budget ran out or the page left the table view.
var ErrNoTable = errors.New("tablewatch: no tournament table")

// ErrNoHeartbeat is returned by Heartbeat when no sqlite sink is configured.
var ErrNoHeartbeat = errors.New("tablewatch: heartbeat needs a sqlite sink")

// Sign-in failures, re-exported for errors.Is.
var (
	ErrEmailButton = login.ErrEmailButton
	ErrCodePrompt  = login.ErrCodePrompt
)

// Runner drives one spectator session. Create one per session.
type Runner struct {
	cfg       *config.Config
	mgr       *browser.Manager
	sinkR     *sink.Router
	board     *board
	sessionID string
	logger    *slog.Logger

	heartbeat *observability.HeartbeatWriter
	hbDB      *sql.DB
}

// New creates a Runner from configuration. Zero config values get their
// defaults.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()

	sessionID := idgen.Session()
	b := newBoard(sessionID)

	mgr := browser.NewManager(browser.Config{
		RemoteURL:         cfg.Browser.Remote,
		Mode:              browser.ParseMode(cfg.Browser.Mode),
		XvfbDisplay:       cfg.Browser.XvfbDisplay,
		SlowMotion:        cfg.Browser.SlowMotion,
		ResourceBlocking:  cfg.Browser.ResourceBlocking,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		IdleTimeout:       cfg.Browser.IdleTimeout,
		Logger:            logger,
	})

	r := &Runner{
		cfg:       cfg,
		mgr:       mgr,
		sinkR:     sink.NewRouter(logger, append([]sink.Sink{b}, sinks...)...),
		board:     b,
		sessionID: sessionID,
		logger:    logger.With("session", sessionID),
	}

	// Heartbeats share the database of the first sqlite sink.
	for _, s := range sinks {
		sq, ok := s.(*sink.SQLite)
		if !ok {
			continue
		}
		hw, err := observability.NewHeartbeatWriter(sq.DB(), sessionID,
			func() string { return string(b.snapshot().Phase) }, cfg.Status.Heartbeat, r.logger)
		if err != nil {
			r.logger.Warn("tablewatch: heartbeat disabled", "error", err)
			break
		}
		r.heartbeat, r.hbDB = hw, sq.DB()
		break
	}
	return r
}

// SessionID identifies the session on every emitted event.
func (r *Runner) SessionID() string { return r.sessionID }

// Status returns a snapshot of the session.
func (r *Runner) Status() Status { return r.board.snapshot() }

// Heartbeat returns the latest liveness row of this session, nil before the
// first beat. A beat older than three intervals is reported as not alive.
func (r *Runner) Heartbeat(ctx context.Context) (*observability.HeartbeatStatus, error) {
	if r.hbDB == nil {
		return nil, ErrNoHeartbeat
	}
	return observability.LatestHeartbeat(ctx, r.hbDB, r.sessionID, 3*r.cfg.Status.Heartbeat)
}

// Run launches the browser, opens the site and drives the session until
// ctx is done. It returns nil on cancellation, an error wrapping ErrNoTable
// when the hunt fails, or the sign-in error.
func (r *Runner) Run(ctx context.Context) error {
	r.board.setPhase(PhaseStarting)
	if err := r.cfg.Validate(); err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: %w", err))
	}
	if r.heartbeat != nil {
		r.heartbeat.Start(ctx)
		defer r.heartbeat.Stop()
	}

	if _, err := r.mgr.Start(ctx); err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: start browser: %w", err))
	}

	tab, err := browser.OpenTab(ctx, r.mgr, r.cfg.Site.URL)
	if err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: open tab: %w", err))
	}
	defer tab.Close()

	p := probe.NewRod(tab.Page,
		probe.WithActionTimeout(r.cfg.Browser.ActionTimeout),
		probe.WithLogger(r.logger),
	)
	return r.drive(ctx, p)
}

// Close releases the sinks and the browser.
func (r *Runner) Close() error {
	err := r.sinkR.Close()
	if cerr := r.mgr.Close(); err == nil {
		err = cerr
	}
	return err
}

// drive runs sign-in, lobby navigation, hunt and observation on p.
func (r *Runner) drive(ctx context.Context, p probe.Probe) error {
	cfg := r.cfg
	log := r.logger

	r.board.setPhase(PhaseSigningIn)
	err := login.SignIn(ctx, p, login.Config{
		Email:           cfg.Login.Email,
		Code:            cfg.Login.Code,
		TutorialTimeout: cfg.Login.TutorialTimeout,
		TutorialSettle:  cfg.Login.TutorialSettle,
		EmailTimeout:    cfg.Login.EmailTimeout,
		CodeTimeout:     cfg.Login.CodeTimeout,
		LobbySettle:     cfg.Login.LobbySettle,
		ScreenshotDir:   cfg.Login.ScreenshotDir,
		Logger:          log,
	})
	if err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: sign in: %w", err))
	}

	r.board.setPhase(PhaseNavigating)
	if err := login.Navigate(ctx, p, cfg.Lobby.Path, cfg.Lobby.Timeout, cfg.Lobby.Settle, log); err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: lobby: %w", err))
	}

	r.board.setPhase(PhaseHunting)
	out, err := hunter.New(hunter.Config{
		Probe:          p,
		TargetSelector: cfg.Selectors.Target,
		SwitchSelector: cfg.Selectors.NextTable,
		MaxAttempts:    cfg.Hunt.MaxAttempts,
		Settle:         cfg.Hunt.Settle,
		SwitchSettle:   cfg.Hunt.SwitchSettle,
		ProbeTimeout:   cfg.Hunt.ProbeTimeout,
		Logger:         log,
	}).Hunt(ctx)
	if err != nil {
		return r.finish(ctx, fmt.Errorf("tablewatch: hunt: %w", err))
	}

	hunt := event.Hunt{
		ID:        idgen.Event(),
		SessionID: r.sessionID,
		State:     out.State.String(),
		Attempts:  out.Attempts,
		Clicks:    out.Clicks,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := r.sinkR.SendHunt(ctx, hunt); err != nil {
		log.Warn("tablewatch: emit hunt failed", "error", err)
	}
	if !out.Found() {
		return r.finish(ctx, fmt.Errorf("%w: %s after %d attempts", ErrNoTable, out.State, out.Attempts))
	}

	r.board.setPhase(PhaseObserving)
	badge := cfg.Selectors.Badge
	obs := observer.New(observer.Config{
		Players: players.NewIdentifier(players.Config{
			Probe:    p,
			Timeout:  cfg.Observe.PlayerTimeout,
			Selector: func(pos players.Position) string { return fmt.Sprintf(badge, pos) },
			Logger:   log,
		}),
		Rounds: round.NewTracker(round.Config{
			Probe:    p,
			Selector: cfg.Selectors.RoundLabel,
			Timeout:  cfg.Observe.RoundTimeout,
			Interval: cfg.Observe.PollInterval,
			Logger:   log,
		}),
		Policy:    policy.ByName(cfg.Observe.Policy),
		Sink:      r.sinkR,
		SessionID: r.sessionID,
		Logger:    log,
	})
	return r.finish(ctx, obs.Observe(ctx))
}

// finish records how the session ended. Cancellation is a clean stop.
func (r *Runner) finish(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		r.board.setPhase(PhaseStopped)
		r.logger.Info("tablewatch: session stopped")
		return nil
	}
	r.board.fail(err)
	r.logger.Error("tablewatch: session failed", "error", err)
	return err
}
