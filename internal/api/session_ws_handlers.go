// Package api provides the WebSocket endpoint for live configuration sessions.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/color"
	"github.com/atelierforma/configurator/internal/configsave"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/session"
	"github.com/atelierforma/configurator/internal/zone"
)

// checkOrigin applies the same allowlist policy as the CORS middleware:
// an empty allowlist means origin checks are disabled, "*" admits any
// browser, and otherwise the Origin header must match exactly. Requests
// without an Origin header come from non-browser clients and pass.
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// clientMessage is a message received from the WebSocket client.
type clientMessage struct {
	Type string        `json:"type"` // edit, undo, redo, adopt_draft, discard_draft
	Edit *session.Edit `json:"edit,omitempty"`
}

// serverMessage is a message pushed to the WebSocket client.
type serverMessage struct {
	Type string `json:"type"` // state, price, asset, error

	Config *zone.GlobalConfig `json:"config,omitempty"`
	Tree   *zone.Zone         `json:"tree,omitempty"`
	Source string             `json:"source,omitempty"`

	// DraftSavedAt is set on the initial state message when a recent
	// draft exists for the template; the client may adopt or discard it.
	DraftSavedAt *time.Time `json:"draft_saved_at,omitempty"`

	Quote  *pricing.Quote `json:"quote,omitempty"`
	Prompt string         `json:"prompt,omitempty"`

	AssetURL   string `json:"asset_url,omitempty"`
	CutFileURL string `json:"cut_file_url,omitempty"`
	Generation uint64 `json:"generation,omitempty"`

	Message string `json:"message,omitempty"`
}

// SessionWSHandlers holds dependencies for the live session WebSocket.
type SessionWSHandlers struct {
	engine    *pricing.Engine
	params    pricing.ParameterRepository
	catalog   catalog.Repository
	configs   configsave.Repository
	generator session.Generator
	drafts    session.DraftStore

	historyDepth int
	debounce     time.Duration
	logger       *slog.Logger

	upgrader websocket.Upgrader
}

// NewSessionWSHandlers creates a new SessionWSHandlers instance. generator,
// drafts, configs and catalog may be nil; the session degrades accordingly.
// allowedOrigins gates websocket upgrades from browsers; empty disables
// origin checking.
func NewSessionWSHandlers(
	engine *pricing.Engine,
	params pricing.ParameterRepository,
	cat catalog.Repository,
	configs configsave.Repository,
	generator session.Generator,
	drafts session.DraftStore,
	historyDepth int,
	debounce time.Duration,
	allowedOrigins []string,
	logger *slog.Logger,
) *SessionWSHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionWSHandlers{
		engine:       engine,
		params:       params,
		catalog:      cat,
		configs:      configs,
		generator:    generator,
		drafts:       drafts,
		historyDepth: historyDepth,
		debounce:     debounce,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, allowedOrigins)
			},
		},
	}
}

// sampleHex resolves a sample id to its hex color for geometry requests.
func (h *SessionWSHandlers) sampleHex(sampleID string) string {
	if h.catalog == nil || sampleID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sample, err := h.catalog.SampleByID(ctx, sampleID)
	if err != nil {
		return ""
	}
	// Swatch values come from the catalog but still get sanitized
	// before they travel to the geometry service.
	return color.SanitizeColor(sample.Hex)
}

// Serve handles GET /v1/session/ws - a live configuration session.
// Edit messages come in; price, asset and error events go out. The
// opening state is resolved from config_id and template_id query
// parameters through the restore chain.
func (h *SessionWSHandlers) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	configID := r.URL.Query().Get("config_id")
	templateID := r.URL.Query().Get("template_id")
	templatePrompt := r.URL.Query().Get("template_prompt")

	restored := session.Restore(ctx, session.RestoreRequest{
		ConfigID:       configID,
		TemplateID:     templateID,
		TemplatePrompt: templatePrompt,
	}, session.RestoreDeps{
		Configs: h.configs,
		Drafts:  h.drafts,
		Logger:  h.logger,
	})

	table, err := h.params.Snapshot(ctx)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load pricing parameters")
		return
	}

	var samples pricing.SampleSource
	if h.catalog != nil {
		set, err := catalog.LoadSampleSet(ctx, h.catalog)
		if err != nil {
			slog.WarnContext(ctx, "failed to load sample set, pricing without surcharges", "error", err)
		} else {
			samples = set
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "session started",
		"template_id", templateID,
		"config_id", configID,
		"source", string(restored.Source),
		"request_id", requestID,
	)

	// Single-writer: all outbound traffic funnels through one goroutine.
	// Session events may fire while the write of an earlier one is in
	// flight; a full buffer drops the event rather than blocking the
	// pricing pipeline.
	outbound := make(chan serverMessage, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			if err := conn.WriteJSON(msg); err != nil {
				slog.WarnContext(ctx, "failed to write session message", "error", err)
				return
			}
		}
	}()

	send := func(msg serverMessage) {
		select {
		case outbound <- msg:
		default:
			slog.WarnContext(ctx, "session outbound buffer full, dropping event", "type", msg.Type)
		}
	}

	newSession := func(cfg zone.GlobalConfig, tree *zone.Zone) *session.Session {
		return session.New(cfg, tree, session.Options{
			TemplateID:    templateID,
			Engine:        h.engine,
			Params:        table,
			Samples:       samples,
			Generator:     h.generator,
			Drafts:        h.drafts,
			SampleHex:     h.sampleHex,
			HistoryDepth:  h.historyDepth,
			DebounceDelay: h.debounce,
			Logger:        h.logger,
			Listener: func(e session.Event) {
				switch e.Type {
				case session.EventPrice:
					q := e.Quote
					send(serverMessage{Type: "price", Quote: &q, Prompt: e.Prompt})
				case session.EventAsset:
					send(serverMessage{
						Type:       "asset",
						AssetURL:   e.AssetURL,
						CutFileURL: e.CutFileURL,
						Generation: e.Generation,
					})
				case session.EventError:
					send(serverMessage{Type: "error", Message: e.Err.Error()})
				}
			},
		})
	}

	sess := newSession(restored.Config, restored.Tree)

	// Initial state message, including the draft offer when one exists
	state := serverMessage{
		Type:   "state",
		Source: string(restored.Source),
		Prompt: sess.Prompt(),
	}
	cfg, tree, _ := sess.State()
	quote := sess.Quote()
	state.Config = &cfg
	state.Tree = tree
	state.Quote = &quote
	if restored.PendingDraft != nil {
		t := restored.PendingDraft.SavedAt
		state.DraftSavedAt = &t
	}
	send(state)

	defer func() {
		sess.Close()
		close(outbound)
		<-writerDone
		conn.Close()
		slog.InfoContext(ctx, "session closed",
			"template_id", templateID,
			"request_id", requestID,
		)
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly", "error", err)
			}
			return
		}

		switch msg.Type {
		case "edit":
			if msg.Edit == nil {
				send(serverMessage{Type: "error", Message: "edit message requires an edit body"})
				continue
			}
			if err := sess.Apply(*msg.Edit); err != nil {
				send(serverMessage{Type: "error", Message: err.Error()})
			}

		case "undo":
			if err := sess.Undo(); err != nil && !errors.Is(err, session.ErrNothingToUndo) {
				send(serverMessage{Type: "error", Message: err.Error()})
			}

		case "redo":
			if err := sess.Redo(); err != nil && !errors.Is(err, session.ErrNothingToRedo) {
				send(serverMessage{Type: "error", Message: err.Error()})
			}

		case "adopt_draft":
			if restored.PendingDraft == nil {
				send(serverMessage{Type: "error", Message: "no draft to adopt"})
				continue
			}
			sess.Close()
			sess = newSession(restored.PendingDraft.Config, restored.PendingDraft.Tree)
			restored.PendingDraft = nil
			cfg, tree, _ := sess.State()
			quote := sess.Quote()
			send(serverMessage{
				Type:   "state",
				Source: string(session.SourceDraft),
				Config: &cfg,
				Tree:   tree,
				Quote:  &quote,
				Prompt: sess.Prompt(),
			})

		case "discard_draft":
			restored.PendingDraft = nil
			if h.drafts != nil && templateID != "" {
				if err := h.drafts.Discard(ctx, templateID); err != nil {
					slog.WarnContext(ctx, "failed to discard draft", "template_id", templateID, "error", err)
				}
			}

		default:
			send(serverMessage{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}
