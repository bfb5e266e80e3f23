package session

import (
	"github.com/atelierforma/configurator/internal/zone"
)

// EditKind identifies a session transition.
type EditKind string

// Tree edits. These go through the undo history.
const (
	EditSplit           EditKind = "split"
	EditSetContent      EditKind = "set_content"
	EditSetDoorContent  EditKind = "set_door_content"
	EditSetHandle       EditKind = "set_handle"
	EditSetRatios       EditKind = "set_ratios"
	EditSetColor        EditKind = "set_color"
	EditToggleLight     EditKind = "toggle_light"
	EditToggleCableHole EditKind = "toggle_cable_hole"
	EditToggleDressing  EditKind = "toggle_dressing"
	EditGroup           EditKind = "group"
)

// Global configuration edits. These bypass the undo history.
const (
	EditSetDimensions      EditKind = "set_dimensions"
	EditSetPlinth          EditKind = "set_plinth"
	EditSetDoorType        EditKind = "set_door_type"
	EditSetFinish          EditKind = "set_finish"
	EditSetSample          EditKind = "set_sample"
	EditSetMultiColor      EditKind = "set_multi_color"
	EditSetComponentSample EditKind = "set_component_sample"
)

// Selection edits. No history, no repricing.
const (
	EditSelect      EditKind = "select"
	EditSelectRange EditKind = "select_range"
)

// Edit is one requested transition. Only the fields relevant to Kind
// are read.
type Edit struct {
	Kind EditKind `json:"kind"`

	ZoneID string   `json:"zone_id,omitempty"`
	IDs    []string `json:"ids,omitempty"`

	Axis    zone.NodeType   `json:"axis,omitempty"`
	Count   int             `json:"count,omitempty"`
	Content zone.Content    `json:"content,omitempty"`
	Handle  zone.HandleType `json:"handle,omitempty"`
	Ratios  []float64       `json:"ratios,omitempty"`
	Color   *zone.ZoneColor `json:"color,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Depth  float64 `json:"depth,omitempty"`

	Plinth    zone.PlinthType `json:"plinth,omitempty"`
	DoorType  zone.DoorType   `json:"door_type,omitempty"`
	FinishKey string          `json:"finish_key,omitempty"`
	SampleID  string          `json:"sample_id,omitempty"`
	Enabled   bool            `json:"enabled,omitempty"`
	Component string          `json:"component,omitempty"`
}

func (k EditKind) isTreeEdit() bool {
	switch k {
	case EditSplit, EditSetContent, EditSetDoorContent, EditSetHandle,
		EditSetRatios, EditSetColor, EditToggleLight, EditToggleCableHole,
		EditToggleDressing, EditGroup:
		return true
	}
	return false
}

func (k EditKind) isSelectionEdit() bool {
	return k == EditSelect || k == EditSelectRange
}
