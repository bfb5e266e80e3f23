// Package zone provides the recursive zone-tree model for a furniture
// carcass: how the body is subdivided into compartments and what each
// compartment contains. All editing operations are copy-on-write so that
// earlier snapshots of a tree remain valid for undo/redo.
package zone

import (
	"errors"
	"fmt"
	"math"
)

// NodeType distinguishes leaf compartments from split nodes.
type NodeType string

// Node types. Horizontal splits stack children top-to-bottom, vertical
// splits arrange them left-to-right.
const (
	TypeLeaf       NodeType = "leaf"
	TypeHorizontal NodeType = "horizontal"
	TypeVertical   NodeType = "vertical"
)

// Content identifies what a leaf compartment holds, or what kind of door
// front is mounted on a node via DoorContent.
type Content string

// Compartment and door content kinds.
const (
	ContentNone       Content = ""
	ContentEmpty      Content = "empty"
	ContentDrawer     Content = "drawer"
	ContentPushDrawer Content = "push_drawer"
	ContentDressing   Content = "dressing"
	ContentDoor       Content = "door"
	ContentDoorRight  Content = "door_right"
	ContentDoorDouble Content = "door_double"
	ContentMirrorDoor Content = "mirror_door"
	ContentPushDoor   Content = "push_door"
	ContentGlassShelf Content = "glass_shelf"
	ContentPegboard   Content = "pegboard"
)

// HandleType identifies the handle hardware mounted on a door or drawer
// front.
type HandleType string

// Handle kinds.
const (
	HandleNone          HandleType = ""
	HandleVerticalBar   HandleType = "vertical_bar"
	HandleHorizontalBar HandleType = "horizontal_bar"
	HandleKnob          HandleType = "knob"
	HandleRecessed      HandleType = "recessed"
)

// PlinthType identifies the base the carcass stands on.
type PlinthType string

// Plinth kinds.
const (
	PlinthNone  PlinthType = "none"
	PlinthMetal PlinthType = "metal"
	PlinthWood  PlinthType = "wood"
)

// DoorType is the carcass-wide door selection, used only when no zone in
// the tree carries its own door.
type DoorType string

// Global door kinds.
const (
	DoorNone   DoorType = "none"
	DoorLeft   DoorType = "left"
	DoorRight  DoorType = "right"
	DoorDouble DoorType = "double"
)

// Component names for per-component color assignment in multi-color mode.
const (
	ComponentStructure = "structure"
	ComponentDrawers   = "drawers"
	ComponentDoors     = "doors"
	ComponentShelves   = "shelves"
	ComponentBack      = "back"
	ComponentBase      = "base"
)

// RatioTolerance is the absolute tolerance within which split ratios must
// sum to 100.
const RatioTolerance = 0.01

// Zone model errors.
var (
	ErrZoneNotFound    = errors.New("zone not found")
	ErrNotLeaf         = errors.New("zone is not a leaf")
	ErrNotSplit        = errors.New("zone is not a split node")
	ErrDuplicateID     = errors.New("duplicate zone id")
	ErrRatioSum        = errors.New("split ratios must sum to 100")
	ErrRatioCount      = errors.New("ratio count must match child count")
	ErrLeafHasChildren = errors.New("leaf zone must not have children")
	ErrSplitHasContent = errors.New("split zone must not have content")
	ErrTooFewChildren  = errors.New("split zone needs at least two children")
)

// ZoneColor is an individual finish override for one zone's visible
// surface, independent of the furniture's default finish.
type ZoneColor struct {
	Hex      string `json:"hex" cbor:"1,keyasint"`
	SampleID string `json:"sample_id,omitempty" cbor:"2,keyasint,omitempty"`
}

// Zone is one node of the carcass subdivision tree. A node is either a
// leaf (Content meaningful, no Children) or a split (Children present,
// Content unset). DoorContent may be set on any node to mount a door in
// front of that node's full extent, covering whatever is behind it.
type Zone struct {
	ID       string   `json:"id" cbor:"1,keyasint"`
	Type     NodeType `json:"type" cbor:"2,keyasint"`
	Children []*Zone  `json:"children,omitempty" cbor:"3,keyasint,omitempty"`

	Content     Content    `json:"content,omitempty" cbor:"4,keyasint,omitempty"`
	DoorContent Content    `json:"door_content,omitempty" cbor:"5,keyasint,omitempty"`
	HandleType  HandleType `json:"handle_type,omitempty" cbor:"6,keyasint,omitempty"`

	// SplitRatios holds the percentage share of each child along the
	// split axis. Empty means equal shares.
	SplitRatios []float64 `json:"split_ratios,omitempty" cbor:"7,keyasint,omitempty"`

	HasLight     bool `json:"has_light,omitempty" cbor:"8,keyasint,omitempty"`
	HasCableHole bool `json:"has_cable_hole,omitempty" cbor:"9,keyasint,omitempty"`
	HasDressing  bool `json:"has_dressing,omitempty" cbor:"10,keyasint,omitempty"`

	Color *ZoneColor `json:"color,omitempty" cbor:"11,keyasint,omitempty"`
}

// GlobalConfig holds the carcass-wide attributes that accompany the zone
// tree: outer dimensions in millimeters, plinth, default finish, and the
// global door selection used when no zone carries its own door.
type GlobalConfig struct {
	Width  float64 `json:"width" cbor:"1,keyasint"`
	Height float64 `json:"height" cbor:"2,keyasint"`
	Depth  float64 `json:"depth" cbor:"3,keyasint"`

	Plinth   PlinthType `json:"plinth" cbor:"4,keyasint"`
	DoorType DoorType   `json:"door_type,omitempty" cbor:"5,keyasint,omitempty"`

	FinishKey string `json:"finish_key,omitempty" cbor:"6,keyasint,omitempty"`
	SampleID  string `json:"sample_id,omitempty" cbor:"7,keyasint,omitempty"`

	// MultiColor enables per-component color assignment; ComponentSamples
	// maps component name (structure, drawers, doors, shelves, back,
	// base) to a sample id overriding SampleID for that component.
	MultiColor       bool              `json:"multi_color,omitempty" cbor:"8,keyasint,omitempty"`
	ComponentSamples map[string]string `json:"component_samples,omitempty" cbor:"9,keyasint,omitempty"`
}

// DefaultDimensions are used when a prompt carries no parseable dimension
// triplet.
const (
	DefaultWidth  = 1000.0
	DefaultHeight = 2000.0
	DefaultDepth  = 500.0
)

// RootID is the id of every tree's root node.
const RootID = "root"

// DefaultTree returns the minimal valid tree: a single empty leaf.
func DefaultTree() *Zone {
	return &Zone{ID: RootID, Type: TypeLeaf, Content: ContentEmpty}
}

// DefaultGlobalConfig returns the carcass defaults for a fresh session.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Depth:  DefaultDepth,
		Plinth: PlinthNone,
	}
}

// Clone returns a copy of the config with its own ComponentSamples map.
// The struct copy alone would share the map, so callers handing a config
// to another goroutine must go through Clone.
func (g GlobalConfig) Clone() GlobalConfig {
	cp := g
	if g.ComponentSamples != nil {
		cp.ComponentSamples = make(map[string]string, len(g.ComponentSamples))
		for k, v := range g.ComponentSamples {
			cp.ComponentSamples[k] = v
		}
	}
	return cp
}

// IsLeaf reports whether the zone is a leaf compartment.
func (z *Zone) IsLeaf() bool {
	return z.Type == TypeLeaf
}

// IsSplit reports whether the zone subdivides space.
func (z *Zone) IsSplit() bool {
	return z.Type == TypeHorizontal || z.Type == TypeVertical
}

// IsDoorContent reports whether c is one of the door content kinds.
func IsDoorContent(c Content) bool {
	switch c {
	case ContentDoor, ContentDoorRight, ContentDoorDouble, ContentMirrorDoor, ContentPushDoor:
		return true
	}
	return false
}

// IsFrontContent reports whether c puts a front on the compartment that
// can carry a handle (doors and drawers).
func IsFrontContent(c Content) bool {
	return IsDoorContent(c) || c == ContentDrawer || c == ContentPushDrawer
}

// Find returns the zone with the given id, or nil.
func (z *Zone) Find(id string) *Zone {
	if z == nil {
		return nil
	}
	if z.ID == id {
		return z
	}
	for _, c := range z.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node of the tree in depth-first order. Returning
// false from fn stops the walk.
func (z *Zone) Walk(fn func(*Zone) bool) bool {
	if z == nil {
		return true
	}
	if !fn(z) {
		return false
	}
	for _, c := range z.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// HasZoneDoor reports whether any node in the tree carries door content,
// either as a leaf's primary content or mounted via DoorContent. When
// true, the global door selection is ignored.
func (z *Zone) HasZoneDoor() bool {
	found := false
	z.Walk(func(n *Zone) bool {
		if n.DoorContent != ContentNone || IsDoorContent(n.Content) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Ratios returns the effective percentage shares for the zone's children:
// SplitRatios when present, equal shares otherwise.
func (z *Zone) Ratios() []float64 {
	n := len(z.Children)
	if n == 0 {
		return nil
	}
	if len(z.SplitRatios) == n {
		out := make([]float64, n)
		copy(out, z.SplitRatios)
		return out
	}
	out := make([]float64, n)
	share := 100.0 / float64(n)
	for i := range out {
		out[i] = share
	}
	return out
}

// EqualRatios reports whether all shares are equal within tolerance.
func EqualRatios(ratios []float64) bool {
	if len(ratios) == 0 {
		return true
	}
	share := 100.0 / float64(len(ratios))
	for _, r := range ratios {
		if math.Abs(r-share) > RatioTolerance {
			return false
		}
	}
	return true
}

// ValidateRatios checks that ratios sum to 100 within tolerance.
func ValidateRatios(ratios []float64) error {
	if len(ratios) == 0 {
		return nil
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	if math.Abs(sum-100) > RatioTolerance {
		return fmt.Errorf("%w: got %.2f", ErrRatioSum, sum)
	}
	return nil
}

// Validate checks the structural invariants of the whole tree: leaf/split
// exclusivity, unique ids, ratio counts and sums.
func (z *Zone) Validate() error {
	seen := make(map[string]bool)
	return z.validate(seen)
}

func (z *Zone) validate(seen map[string]bool) error {
	if seen[z.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateID, z.ID)
	}
	seen[z.ID] = true

	if z.IsLeaf() {
		if len(z.Children) > 0 {
			return fmt.Errorf("%w: %s", ErrLeafHasChildren, z.ID)
		}
		return nil
	}

	if z.Content != ContentNone {
		return fmt.Errorf("%w: %s", ErrSplitHasContent, z.ID)
	}
	if len(z.Children) < 2 {
		return fmt.Errorf("%w: %s", ErrTooFewChildren, z.ID)
	}
	if len(z.SplitRatios) > 0 {
		if len(z.SplitRatios) != len(z.Children) {
			return fmt.Errorf("%w: %s", ErrRatioCount, z.ID)
		}
		if err := ValidateRatios(z.SplitRatios); err != nil {
			return fmt.Errorf("%s: %w", z.ID, err)
		}
	}
	for _, c := range z.Children {
		if err := c.validate(seen); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the tree. Editing operations only copy the
// path they touch; Clone is for callers that need a fully independent
// tree, such as history snapshots handed across package boundaries.
func (z *Zone) Clone() *Zone {
	if z == nil {
		return nil
	}
	cp := *z
	if z.Color != nil {
		color := *z.Color
		cp.Color = &color
	}
	if len(z.SplitRatios) > 0 {
		cp.SplitRatios = make([]float64, len(z.SplitRatios))
		copy(cp.SplitRatios, z.SplitRatios)
	}
	if len(z.Children) > 0 {
		cp.Children = make([]*Zone, len(z.Children))
		for i, c := range z.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Equal reports deep structural equality of two trees.
func (z *Zone) Equal(o *Zone) bool {
	if z == nil || o == nil {
		return z == o
	}
	if z.ID != o.ID || z.Type != o.Type || z.Content != o.Content ||
		z.DoorContent != o.DoorContent || z.HandleType != o.HandleType ||
		z.HasLight != o.HasLight || z.HasCableHole != o.HasCableHole ||
		z.HasDressing != o.HasDressing {
		return false
	}
	if (z.Color == nil) != (o.Color == nil) {
		return false
	}
	if z.Color != nil && *z.Color != *o.Color {
		return false
	}
	if len(z.SplitRatios) != len(o.SplitRatios) {
		return false
	}
	for i := range z.SplitRatios {
		if math.Abs(z.SplitRatios[i]-o.SplitRatios[i]) > RatioTolerance {
			return false
		}
	}
	if len(z.Children) != len(o.Children) {
		return false
	}
	for i := range z.Children {
		if !z.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
