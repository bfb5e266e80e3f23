// Package session owns the live state of one configuration session:
// the global config, the zone tree and the current selection. All
// mutation flows through Apply, which reprices synchronously and
// schedules a debounced geometry regeneration, so the displayed price
// always reflects the latest edit while the 3D asset catches up.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/draft"
	"github.com/atelierforma/configurator/internal/geometry"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/zone"
)

// Session errors.
var (
	ErrSessionClosed = errors.New("session is closed")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrUnknownEdit   = errors.New("unknown edit kind")
)

// Defaults for the session pipeline.
const (
	DefaultHistoryDepth  = 50
	DefaultDebounceDelay = 400 * time.Millisecond
)

// Generator dispatches geometry regeneration. *geometry.Client
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, req geometry.GenerateRequest) (*geometry.GenerateResult, error)
}

// DraftStore persists session snapshots. *draft.Store satisfies it.
type DraftStore interface {
	Save(ctx context.Context, templateID string, snap *draft.Snapshot) error
	Load(ctx context.Context, templateID string) (*draft.Snapshot, error)
	Discard(ctx context.Context, templateID string) error
}

// EventType identifies a session event.
type EventType string

// Session event types.
const (
	EventPrice EventType = "price"
	EventAsset EventType = "asset"
	EventError EventType = "error"
)

// Event is pushed to the session listener after edits: a price event
// synchronously on every committed edit, an asset event when a geometry
// generation completes, an error event when one fails.
type Event struct {
	Type EventType

	Quote  pricing.Quote
	Prompt string

	AssetURL   string
	CutFileURL string
	Generation uint64

	Err error
}

// Options configures a session.
type Options struct {
	TemplateID string

	Engine  *pricing.Engine
	Params  pricing.ParameterTable
	Samples pricing.SampleSource

	// Generator is optional; without it edits still reprice but no
	// geometry is dispatched.
	Generator Generator

	// Drafts is optional; without it autosave is disabled.
	Drafts DraftStore

	// Listener receives session events. Called from the applying
	// goroutine for price events and from a background goroutine for
	// asset and error events.
	Listener func(Event)

	// SampleHex resolves a sample id to its hex color for the geometry
	// request. Optional.
	SampleHex func(sampleID string) string

	HistoryDepth  int
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// Session is the state of one live configuration. Safe for concurrent
// use.
type Session struct {
	mu sync.Mutex

	templateID string
	cfg        zone.GlobalConfig
	tree       *zone.Zone
	selection  []string

	undo []*zone.Zone
	redo []*zone.Zone

	engine    *pricing.Engine
	params    pricing.ParameterTable
	samples   pricing.SampleSource
	generator Generator
	drafts    DraftStore
	listener  func(Event)
	sampleHex func(string) string

	historyDepth int
	debounce     time.Duration
	timer        *time.Timer

	// generation increments on every dispatch; a response whose token
	// no longer matches is stale and dropped.
	generation uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	logger *slog.Logger
}

// New creates a session over an initial state. A nil tree starts from
// the default single-leaf tree.
func New(cfg zone.GlobalConfig, tree *zone.Zone, opts Options) *Session {
	if tree == nil {
		tree = zone.DefaultTree()
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = DefaultHistoryDepth
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.Engine == nil {
		opts.Engine = pricing.NewEngine(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		templateID:   opts.TemplateID,
		cfg:          cfg,
		tree:         tree,
		engine:       opts.Engine,
		params:       opts.Params,
		samples:      opts.Samples,
		generator:    opts.Generator,
		drafts:       opts.Drafts,
		listener:     opts.Listener,
		sampleHex:    opts.SampleHex,
		historyDepth: opts.HistoryDepth,
		debounce:     opts.DebounceDelay,
		ctx:          ctx,
		cancel:       cancel,
		logger:       opts.Logger,
	}
}

// State returns a snapshot of the current config, tree and selection.
func (s *Session) State() (zone.GlobalConfig, *zone.Zone, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := make([]string, len(s.selection))
	copy(sel, s.selection)
	return s.cfg.Clone(), s.tree, sel
}

// Prompt returns the encoded structure string for the current state.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.Encode(s.cfg, s.tree)
}

// Quote reprices the current state.
func (s *Session) Quote() pricing.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Price(s.cfg, s.tree, s.params, s.samples)
}

// Apply runs one edit. On success the session reprices synchronously,
// emits a price event and schedules a debounced geometry regeneration.
// Failed edits leave the state untouched.
func (s *Session) Apply(e Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if e.Kind.isSelectionEdit() {
		return s.applySelection(e)
	}

	if e.Kind.isTreeEdit() {
		next, err := s.applyTree(e)
		if err != nil {
			return err
		}
		s.pushUndo(s.tree)
		s.redo = nil
		s.tree = next
	} else {
		if err := s.applyConfig(e); err != nil {
			return err
		}
	}

	s.commitLocked()
	return nil
}

func (s *Session) applyTree(e Edit) (*zone.Zone, error) {
	switch e.Kind {
	case EditSplit:
		return zone.Split(s.tree, e.ZoneID, e.Axis, e.Count)
	case EditSetContent:
		return zone.SetContent(s.tree, e.ZoneID, e.Content)
	case EditSetDoorContent:
		return zone.SetDoorContent(s.tree, e.ZoneID, e.Content)
	case EditSetHandle:
		return zone.SetHandleType(s.tree, e.ZoneID, e.Handle)
	case EditSetRatios:
		return zone.SetRatios(s.tree, e.ZoneID, e.Ratios)
	case EditSetColor:
		return zone.SetColor(s.tree, e.ZoneID, e.Color)
	case EditToggleLight:
		return zone.ToggleLight(s.tree, e.ZoneID)
	case EditToggleCableHole:
		return zone.ToggleCableHole(s.tree, e.ZoneID)
	case EditToggleDressing:
		return zone.ToggleDressing(s.tree, e.ZoneID)
	case EditGroup:
		return zone.Group(s.tree, e.IDs, e.Content)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEdit, e.Kind)
}

func (s *Session) applyConfig(e Edit) error {
	switch e.Kind {
	case EditSetDimensions:
		if e.Width <= 0 || e.Height <= 0 || e.Depth <= 0 {
			return fmt.Errorf("dimensions must be positive")
		}
		s.cfg.Width, s.cfg.Height, s.cfg.Depth = e.Width, e.Height, e.Depth
	case EditSetPlinth:
		s.cfg.Plinth = e.Plinth
	case EditSetDoorType:
		s.cfg.DoorType = e.DoorType
	case EditSetFinish:
		s.cfg.FinishKey = e.FinishKey
	case EditSetSample:
		s.cfg.SampleID = e.SampleID
	case EditSetMultiColor:
		s.cfg.MultiColor = e.Enabled
	case EditSetComponentSample:
		if s.cfg.ComponentSamples == nil {
			s.cfg.ComponentSamples = make(map[string]string)
		}
		if e.SampleID == "" {
			delete(s.cfg.ComponentSamples, e.Component)
		} else {
			s.cfg.ComponentSamples[e.Component] = e.SampleID
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEdit, e.Kind)
	}
	return nil
}

func (s *Session) applySelection(e Edit) error {
	switch e.Kind {
	case EditSelect:
		for _, id := range e.IDs {
			if s.tree.Find(id) == nil {
				return fmt.Errorf("select %s: %w", id, zone.ErrZoneNotFound)
			}
		}
		// Clicking a zone that is already selected deselects; the
		// sole-selected root stays selected.
		if len(e.IDs) == 1 && s.isSelected(e.IDs[0]) {
			if !(e.IDs[0] == zone.RootID && len(s.selection) == 1) {
				s.selection = nil
			}
			return nil
		}
		s.selection = append([]string(nil), e.IDs...)
	case EditSelectRange:
		if len(e.IDs) != 2 {
			return fmt.Errorf("select_range needs exactly two ids")
		}
		ids, err := zone.SelectRange(s.tree, e.IDs[0], e.IDs[1])
		if err != nil {
			return err
		}
		s.selection = ids
	}
	return nil
}

func (s *Session) isSelected(id string) bool {
	for _, sel := range s.selection {
		if sel == id {
			return true
		}
	}
	return false
}

func (s *Session) pushUndo(t *zone.Zone) {
	s.undo = append(s.undo, t)
	if len(s.undo) > s.historyDepth {
		s.undo = s.undo[len(s.undo)-s.historyDepth:]
	}
}

// Undo restores the previous tree snapshot.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	s.redo = append(s.redo, s.tree)
	s.tree = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.commitLocked()
	return nil
}

// Redo reapplies the most recently undone tree snapshot.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if len(s.redo) == 0 {
		return ErrNothingToRedo
	}
	s.undo = append(s.undo, s.tree)
	s.tree = s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.commitLocked()
	return nil
}

// commitLocked runs the post-edit pipeline: synchronous reprice, event
// emission, debounced geometry dispatch and best-effort autosave.
// Caller holds s.mu.
func (s *Session) commitLocked() {
	quote := s.engine.Price(s.cfg, s.tree, s.params, s.samples)
	prompt := codec.Encode(s.cfg, s.tree)

	if s.listener != nil {
		s.listener(Event{Type: EventPrice, Quote: quote, Prompt: prompt})
	}

	s.scheduleRegenerateLocked()
	s.autosaveLocked()
}

func (s *Session) scheduleRegenerateLocked() {
	if s.generator == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.dispatchGeometry)
}

// dispatchGeometry runs after the debounce window with no further
// edits. It stamps a fresh generation token; any response carrying an
// older token is discarded.
func (s *Session) dispatchGeometry() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	token := s.generation
	req := geometry.GenerateRequest{
		Prompt:     codec.Encode(s.cfg, s.tree),
		FinishKey:  s.cfg.FinishKey,
		Generation: token,
	}
	if s.sampleHex != nil && s.cfg.SampleID != "" {
		req.SampleHex = s.sampleHex(s.cfg.SampleID)
	}
	ctx := s.ctx
	s.mu.Unlock()

	result, err := s.generator.Generate(ctx, req)

	s.mu.Lock()
	stale := s.closed || token != s.generation
	s.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		s.logger.Warn("geometry generation failed",
			slog.String("template_id", s.templateID),
			slog.Uint64("generation", token),
			slog.String("error", err.Error()))
		if s.listener != nil {
			s.listener(Event{Type: EventError, Generation: token, Err: err})
		}
		return
	}
	if s.listener != nil {
		s.listener(Event{
			Type:       EventAsset,
			AssetURL:   result.AssetURL,
			CutFileURL: result.CutFileURL,
			Generation: token,
		})
	}
}

// autosaveLocked snapshots the session to the draft store. Last write
// wins; failures are logged and never surfaced to the edit path.
func (s *Session) autosaveLocked() {
	if s.drafts == nil || s.templateID == "" {
		return
	}
	// The tree is copy-on-write and safe to share with the marshal
	// goroutine; the config's map field is not and must be cloned.
	snap := &draft.Snapshot{
		Tree:    s.tree,
		Config:  s.cfg.Clone(),
		SavedAt: time.Now(),
	}
	templateID := s.templateID
	ctx := s.ctx
	go func() {
		if err := s.drafts.Save(ctx, templateID, snap); err != nil {
			s.logger.Warn("draft autosave failed",
				slog.String("template_id", templateID),
				slog.String("error", err.Error()))
		}
	}()
}

// Close cancels the pending regeneration timer and invalidates all
// in-flight generations. Further edits fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.cancel()
}
