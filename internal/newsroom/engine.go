package newsroom

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/newsroom/internal/claude"
	"github.com/ashureev/newsroom/internal/domain"
)

// webSearchTool is the only tool capability granted to research sessions.
const webSearchTool = "WebSearch"

// previewLimit caps preview text on progress events. Full text always goes to
// the activity log.
const previewLimit = 100

var (
	// ErrNotConfigured is raised when the model-call capability is missing.
	// Fatal to the individual session; the coordinator converts it into an
	// error-flagged result with cost 0.
	ErrNotConfigured = errors.New("newsroom: model capability is not configured")

	// ErrNoResult is raised when a session stream ends with no captured text.
	ErrNoResult = errors.New("newsroom: no result received from agent")
)

// Config holds engine tuning parameters.
type Config struct {
	Model             string
	MaxTurns          int
	DebateMaxTurns    int
	HeartbeatInterval time.Duration
	Personas          []domain.Persona
}

// DefaultConfig returns the canonical engine configuration.
func DefaultConfig() Config {
	return Config{
		Model:             "sonnet",
		MaxTurns:          5,
		DebateMaxTurns:    2,
		HeartbeatInterval: 3 * time.Second,
		Personas:          Personas(),
	}
}

// Engine runs newsroom simulations. Sessions share nothing but the injected
// Sink and the read-only persona slate.
type Engine struct {
	client claude.StreamClient
	sink   Sink
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine. Zero-valued Config fields fall back to defaults.
func New(client claude.StreamClient, sink Sink, cfg Config, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = def.MaxTurns
	}
	if cfg.DebateMaxTurns <= 0 {
		cfg.DebateMaxTurns = def.DebateMaxTurns
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if len(cfg.Personas) == 0 {
		cfg.Personas = def.Personas
	}

	return &Engine{
		client: client,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}
}

// activity publishes one agent:activity event stamped with the persona and
// the current time.
func (e *Engine) activity(p domain.Persona, a Activity) {
	a.Agent = p.ID
	a.Newspaper = p.Name
	a.Timestamp = time.Now().UnixMilli()
	e.sink.Publish(EventAgentActivity, a)
}

// progress publishes one agent:progress event for the persona.
func (e *Engine) progress(p domain.Persona, a AgentProgress) {
	a.Agent = p.ID
	a.Newspaper = p.Name
	e.sink.Publish(EventAgentProgress, a)
}

// startHeartbeat emits a low-priority liveness progress event on a fixed
// interval until the returned stop function is called. Stop is idempotent and
// synchronous: once it returns, no further heartbeat is published.
func (e *Engine) startHeartbeat(p domain.Persona, statusText string) func() {
	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		counter := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				counter++
				e.progress(p, AgentProgress{
					Action:    "active",
					Message:   statusText + " " + strings.Repeat(".", counter%4),
					Heartbeat: true,
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			<-exited
		})
	}
}
