// Package codec converts between a (GlobalConfig, Zone tree) pair and
// the single-line prompt string consumed by the external geometry
// service, and back. The grammar is the only real contract with that
// service; its quirks (notably the reversed emission order of horizontal
// children, matching the service's bottom-up coordinates) are preserved
// exactly and must not be "fixed" here.
//
// Lighting, pegboards and per-zone color overrides are not part of the
// prompt: colors travel as separate parameters of the geometry request
// and lighting only affects pricing. Round-trip guarantees therefore
// exclude those fields. The grammar also cannot distinguish a leaf whose
// primary content is a door kind from a door mounted over an empty
// compartment; at the root position a door-content leaf round-trips as
// the equivalent mounted door.
package codec

import (
	"strconv"
	"strings"

	"github.com/atelierforma/configurator/internal/zone"
)

// FurnitureTag opens every prompt and identifies the furniture family.
const FurnitureTag = "B"

// flagLiteral is a fixed marker required by the geometry service.
const flagLiteral = "Me"

// Plinth flag codes.
const (
	flagPlinthMetal = "S"
	flagPlinthWood  = "S2"
)

// contentCode returns the wire code for a leaf's primary content. Content
// kinds without a code (empty, pegboard, mirror) encode as nothing.
func contentCode(c zone.Content) string {
	switch c {
	case zone.ContentDrawer:
		return "T"
	case zone.ContentPushDrawer:
		return "To"
	case zone.ContentDressing:
		return "D"
	case zone.ContentGlassShelf:
		return "v"
	}
	return ""
}

// doorCode returns the wire code for a door content kind.
func doorCode(c zone.Content) string {
	switch c {
	case zone.ContentDoor:
		return "Pg"
	case zone.ContentDoorRight:
		return "Pd"
	case zone.ContentDoorDouble:
		return "P2"
	case zone.ContentMirrorDoor:
		return "Pm"
	case zone.ContentPushDoor:
		return "Po"
	}
	return ""
}

// handleDigit returns the single-digit wire code for a handle type.
func handleDigit(h zone.HandleType) string {
	switch h {
	case zone.HandleVerticalBar:
		return "1"
	case zone.HandleHorizontalBar:
		return "2"
	case zone.HandleKnob:
		return "3"
	case zone.HandleRecessed:
		return "4"
	}
	return ""
}

// globalDoorCode returns the flag-segment code for the carcass-wide door
// selection.
func globalDoorCode(d zone.DoorType) string {
	switch d {
	case zone.DoorDouble:
		return "P2"
	case zone.DoorLeft:
		return "Pg"
	case zone.DoorRight:
		return "Pd"
	}
	return ""
}

// Encode serializes the configuration into a prompt:
// tag, millimeter dimensions as (width,depth,height), the flag segment,
// then the recursively encoded tree.
func Encode(g zone.GlobalConfig, root *zone.Zone) string {
	var b strings.Builder
	b.WriteString(FurnitureTag)
	b.WriteByte('(')
	b.WriteString(formatNum(g.Width))
	b.WriteByte(',')
	b.WriteString(formatNum(g.Depth))
	b.WriteByte(',')
	b.WriteString(formatNum(g.Height))
	b.WriteByte(')')

	b.WriteString(flagLiteral)
	switch g.Plinth {
	case zone.PlinthMetal:
		b.WriteString(flagPlinthMetal)
	case zone.PlinthWood:
		b.WriteString(flagPlinthWood)
	}
	// Global and per-zone doors are mutually exclusive: the global code is
	// only emitted when no zone carries its own door.
	if !root.HasZoneDoor() {
		b.WriteString(globalDoorCode(g.DoorType))
	}

	// A bare door-content leaf at the root would read back as a global
	// door flag over an empty tree, so the root takes the wrapper form
	// with an explicitly parenthesized compartment. Mid-tree leaves keep
	// the bare form, which is unambiguous after "(" or ",".
	if root.IsLeaf() && zone.IsDoorContent(root.Content) && root.DoorContent == zone.ContentNone {
		inner := *root
		inner.Content = zone.ContentEmpty
		inner.HandleType = zone.HandleNone
		b.WriteString(doorCode(root.Content))
		b.WriteString(handleDigit(root.HandleType))
		b.WriteByte('(')
		encodeZone(&b, &inner)
		b.WriteByte(')')
		return b.String()
	}

	encodeZone(&b, root)
	return b.String()
}

func encodeZone(b *strings.Builder, z *zone.Zone) {
	if z.DoorContent != zone.ContentNone {
		b.WriteString(doorCode(z.DoorContent))
		b.WriteString(handleDigit(z.HandleType))
		b.WriteByte('(')
		inner := *z
		inner.DoorContent = zone.ContentNone
		inner.HandleType = zone.HandleNone
		encodeZone(b, &inner)
		b.WriteByte(')')
		return
	}

	if z.IsSplit() {
		children := z.Children
		ratios := z.Ratios()
		if z.Type == zone.TypeHorizontal {
			b.WriteByte('H')
			children = reversed(children)
			ratios = reversedRatios(ratios)
		} else {
			b.WriteByte('V')
		}
		if zone.EqualRatios(ratios) {
			b.WriteString(strconv.Itoa(len(children)))
		} else {
			b.WriteByte('[')
			for i, r := range ratios {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(formatRatio(r))
			}
			b.WriteByte(']')
		}
		b.WriteByte('(')
		for i, c := range children {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeZone(b, c)
		}
		b.WriteByte(')')
		return
	}

	// Leaf. Door content kinds as primary content use the door codes
	// without a parenthesized body.
	if zone.IsDoorContent(z.Content) {
		b.WriteString(doorCode(z.Content))
	} else {
		b.WriteString(contentCode(z.Content))
	}
	b.WriteString(handleDigit(z.HandleType))
	if z.HasCableHole {
		b.WriteByte('c')
	}
	if z.HasDressing {
		b.WriteByte('D')
	}
}

// reversed returns a reversed copy of the child slice. Horizontal
// children go on the wire bottom-up.
func reversed(children []*zone.Zone) []*zone.Zone {
	out := make([]*zone.Zone, len(children))
	for i, c := range children {
		out[len(children)-1-i] = c
	}
	return out
}

func reversedRatios(ratios []float64) []float64 {
	out := make([]float64, len(ratios))
	for i, r := range ratios {
		out[len(ratios)-1-i] = r
	}
	return out
}

// formatNum renders a millimeter dimension without trailing zeros.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatRatio renders a percentage share with at most two decimals.
func formatRatio(r float64) string {
	s := strconv.FormatFloat(r, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
