package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/configsave"
	"github.com/atelierforma/configurator/internal/draft"
	"github.com/atelierforma/configurator/internal/zone"
)

// Source records where a restored session state came from.
type Source string

// Restoration sources, in priority order.
const (
	SourceSaved    Source = "saved"
	SourceCatalog  Source = "catalog"
	SourceDraft    Source = "draft"
	SourceTemplate Source = "template"
	SourceDefault  Source = "default"
)

// MaxDraftAge is how old a draft may be and still be offered for
// restoration.
const MaxDraftAge = 24 * time.Hour

// RestoreRequest identifies what to open.
type RestoreRequest struct {
	// ConfigID, when set, restores a saved configuration.
	ConfigID string

	// TemplateID keys the draft lookup.
	TemplateID string

	// CatalogPrompt is a catalog model's embedded configuration, used
	// when no saved configuration matches.
	CatalogPrompt string

	// TemplatePrompt is the bare template structure, the fallback
	// before the hardcoded default.
	TemplatePrompt string
}

// RestoreDeps are the stores consulted during restoration. Any of them
// may be nil; the chain skips what it cannot reach.
type RestoreDeps struct {
	Configs configsave.Repository
	Drafts  DraftStore
	Logger  *slog.Logger
}

// Restored is the outcome of a restoration.
type Restored struct {
	Config zone.GlobalConfig
	Tree   *zone.Zone
	Source Source

	// PendingDraft is a recent in-progress edit found for the template
	// when no saved or catalog state took precedence. The caller offers
	// it for confirmation: adopt it by starting the session from the
	// snapshot, or discard it via the draft store.
	PendingDraft *draft.Snapshot
}

// Restore resolves the opening state for a session in priority order:
// saved configuration, catalog payload, recent draft (offered, not
// applied), template prompt, default tree. Store failures degrade to
// the next source rather than erroring; an open configurator beats a
// strict one.
func Restore(ctx context.Context, req RestoreRequest, deps RestoreDeps) *Restored {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if req.ConfigID != "" && deps.Configs != nil {
		saved, err := deps.Configs.GetByID(ctx, req.ConfigID)
		if err == nil {
			cfg, tree := codec.Decode(saved.Prompt)
			// The denormalized columns win over the prompt when present
			if saved.Width > 0 && saved.Height > 0 && saved.Depth > 0 {
				cfg.Width, cfg.Height, cfg.Depth = saved.Width, saved.Height, saved.Depth
			}
			if saved.FinishKey != "" {
				cfg.FinishKey = saved.FinishKey
			}
			if saved.SampleID != "" {
				cfg.SampleID = saved.SampleID
			}
			return &Restored{Config: cfg, Tree: tree, Source: SourceSaved}
		}
		logger.Warn("saved configuration unavailable, falling back",
			slog.String("config_id", req.ConfigID),
			slog.String("error", err.Error()))
	}

	if req.CatalogPrompt != "" {
		cfg, tree := codec.Decode(req.CatalogPrompt)
		return &Restored{Config: cfg, Tree: tree, Source: SourceCatalog}
	}

	var pending *draft.Snapshot
	if req.TemplateID != "" && deps.Drafts != nil {
		snap, err := deps.Drafts.Load(ctx, req.TemplateID)
		switch {
		case err == nil && time.Since(snap.SavedAt) < MaxDraftAge:
			pending = snap
		case err == nil:
			// Stale drafts are silently ignored; redis TTL usually
			// removes them first.
		case errors.Is(err, draft.ErrDraftNotFound):
		default:
			logger.Warn("draft lookup failed",
				slog.String("template_id", req.TemplateID),
				slog.String("error", err.Error()))
		}
	}

	if req.TemplatePrompt != "" {
		cfg, tree := codec.Decode(req.TemplatePrompt)
		return &Restored{Config: cfg, Tree: tree, Source: SourceTemplate, PendingDraft: pending}
	}

	return &Restored{
		Config:       zone.DefaultGlobalConfig(),
		Tree:         zone.DefaultTree(),
		Source:       SourceDefault,
		PendingDraft: pending,
	}
}
