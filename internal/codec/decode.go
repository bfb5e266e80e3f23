package codec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/atelierforma/configurator/internal/zone"
)

// dimsPattern matches the leading dimension triplet (width,depth,height).
var dimsPattern = regexp.MustCompile(`\((\d+(?:\.\d+)?),(\d+(?:\.\d+)?),(\d+(?:\.\d+)?)\)`)

// Decode parses a prompt back into the global-config fragment it carries
// (dimensions, plinth, global door) and the zone tree. Decode never
// fails: a missing dimension triplet yields the default dimensions and
// any unparseable zone segment degrades to an empty leaf. This leniency
// is deliberate — a restored configuration must always produce a working
// tree, never an error.
func Decode(prompt string) (zone.GlobalConfig, *zone.Zone) {
	g := zone.DefaultGlobalConfig()

	rest := prompt
	if m := dimsPattern.FindStringSubmatchIndex(prompt); m != nil {
		w, _ := strconv.ParseFloat(prompt[m[2]:m[3]], 64)
		d, _ := strconv.ParseFloat(prompt[m[4]:m[5]], 64)
		h, _ := strconv.ParseFloat(prompt[m[6]:m[7]], 64)
		if w > 0 && d > 0 && h > 0 {
			g.Width, g.Depth, g.Height = w, d, h
		}
		rest = prompt[m[1]:]
	}

	rest = consumeFlags(rest, &g)
	root := parseZone(strings.TrimSpace(rest), zone.RootID)
	return g, root
}

// consumeFlags strips the flag segment from the front of the remainder
// and records plinth and global door selections. Flags are detected by
// presence, not full grammar: absent flags simply don't match.
func consumeFlags(s string, g *zone.GlobalConfig) string {
	s = strings.TrimPrefix(s, flagLiteral)
	if strings.HasPrefix(s, flagPlinthWood) {
		g.Plinth = zone.PlinthWood
		s = s[len(flagPlinthWood):]
	} else if strings.HasPrefix(s, flagPlinthMetal) {
		g.Plinth = zone.PlinthMetal
		s = s[len(flagPlinthMetal):]
	}
	if code, door := globalDoorFlag(s); door != zone.DoorNone {
		g.DoorType = door
		s = s[len(code):]
	}
	return s
}

// globalDoorFlag detects a global door code at the front of the zone
// remainder. A door code followed by a parenthesis (directly or through
// a handle digit) belongs to the zone encoding, not the flag segment.
func globalDoorFlag(s string) (string, zone.DoorType) {
	for code, door := range map[string]zone.DoorType{
		"P2": zone.DoorDouble,
		"Pg": zone.DoorLeft,
		"Pd": zone.DoorRight,
	} {
		if !strings.HasPrefix(s, code) {
			continue
		}
		tail := s[len(code):]
		if tail == "" {
			return code, door
		}
		// The flag segment only precedes a zone encoding that cannot be a
		// continuation of this code: a wrapper body "(" or a handle digit
		// means the code belongs to the zone, not the flags.
		switch tail[0] {
		case 'H', 'V', 'T', 'D', 'v', 'c':
			return code, door
		}
		return "", zone.DoorNone
	}
	return "", zone.DoorNone
}

// doorContentByCode is the inverse of doorCode.
func doorContentByCode(code string) zone.Content {
	switch code {
	case "Pg":
		return zone.ContentDoor
	case "Pd":
		return zone.ContentDoorRight
	case "P2":
		return zone.ContentDoorDouble
	case "Pm":
		return zone.ContentMirrorDoor
	case "Po":
		return zone.ContentPushDoor
	}
	return zone.ContentNone
}

// handleByDigit is the inverse of handleDigit.
func handleByDigit(b byte) zone.HandleType {
	switch b {
	case '1':
		return zone.HandleVerticalBar
	case '2':
		return zone.HandleHorizontalBar
	case '3':
		return zone.HandleKnob
	case '4':
		return zone.HandleRecessed
	}
	return zone.HandleNone
}

// parseZone is the recursive-descent entry for one zone segment. It
// returns an empty leaf for anything it cannot make sense of.
func parseZone(s, id string) *zone.Zone {
	if s == "" {
		return &zone.Zone{ID: id, Type: zone.TypeLeaf, Content: zone.ContentEmpty}
	}

	// Door prefix: either a wrapper around a parenthesized body or a
	// leaf whose primary content is a door.
	if len(s) >= 2 {
		if door := doorContentByCode(s[:2]); door != zone.ContentNone {
			rest := s[2:]
			handle := zone.HandleNone
			if rest != "" && rest[0] >= '1' && rest[0] <= '4' {
				handle = handleByDigit(rest[0])
				rest = rest[1:]
			}
			if strings.HasPrefix(rest, "(") {
				body, ok := matchParen(rest)
				if !ok {
					return &zone.Zone{ID: id, Type: zone.TypeLeaf, Content: zone.ContentEmpty}
				}
				inner := parseZone(body, id)
				inner.DoorContent = door
				inner.HandleType = handle
				return inner
			}
			return parseLeafTail(rest, &zone.Zone{ID: id, Type: zone.TypeLeaf, Content: door, HandleType: handle})
		}
	}

	if s[0] == 'H' || s[0] == 'V' {
		if z := parseSplit(s, id); z != nil {
			return z
		}
		return &zone.Zone{ID: id, Type: zone.TypeLeaf, Content: zone.ContentEmpty}
	}

	return parseLeaf(s, id)
}

// parseSplit parses H/V nodes: axis, bare child count or bracketed ratio
// list, then the parenthesized comma-joined children. Horizontal children
// arrive in reverse order on the wire and are restored to logical
// top-to-bottom order here. Returns nil on malformed input.
func parseSplit(s, id string) *zone.Zone {
	axis := zone.TypeVertical
	if s[0] == 'H' {
		axis = zone.TypeHorizontal
	}
	rest := s[1:]

	var ratios []float64
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil
		}
		for _, part := range strings.Split(rest[1:end], ",") {
			r, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				ratios = nil
				break
			}
			ratios = append(ratios, r)
		}
		rest = rest[end+1:]
	} else {
		// Bare child count; the actual children are authoritative, the
		// count is skipped.
		for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
			rest = rest[1:]
		}
	}

	if !strings.HasPrefix(rest, "(") {
		return nil
	}
	body, ok := matchParen(rest)
	if !ok {
		return nil
	}
	parts := splitTopLevel(body)
	if len(parts) < 2 {
		return nil
	}

	n := len(parts)
	children := make([]*zone.Zone, n)
	for i, part := range parts {
		// Wire position i corresponds to logical index n-1-i for
		// horizontal splits.
		logical := i
		if axis == zone.TypeHorizontal {
			logical = n - 1 - i
		}
		children[logical] = parseZone(strings.TrimSpace(part), fmt.Sprintf("%s-%d", id, logical))
	}

	z := &zone.Zone{ID: id, Type: axis, Children: children}
	if len(ratios) == n {
		if axis == zone.TypeHorizontal {
			ratios = reversedRatios(ratios)
		}
		if !zone.EqualRatios(ratios) && zone.ValidateRatios(ratios) == nil {
			z.SplitRatios = ratios
		}
	}
	return z
}

// parseLeaf reconstructs leaf content and markers from the segment.
func parseLeaf(s, id string) *zone.Zone {
	z := &zone.Zone{ID: id, Type: zone.TypeLeaf, Content: zone.ContentEmpty}

	switch {
	case strings.HasPrefix(s, "To"):
		z.Content = zone.ContentPushDrawer
		s = s[2:]
	case strings.HasPrefix(s, "T"):
		z.Content = zone.ContentDrawer
		s = s[1:]
	case strings.HasPrefix(s, "D"):
		z.Content = zone.ContentDressing
		s = s[1:]
	case strings.HasPrefix(s, "v"):
		z.Content = zone.ContentGlassShelf
		s = s[1:]
	}

	if s != "" && s[0] >= '1' && s[0] <= '4' {
		z.HandleType = handleByDigit(s[0])
		s = s[1:]
	}
	return parseLeafTail(s, z)
}

// parseLeafTail consumes the trailing flag markers of a leaf. Unknown
// bytes are ignored rather than failing the whole decode.
func parseLeafTail(s string, z *zone.Zone) *zone.Zone {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'c':
			z.HasCableHole = true
		case 'D':
			z.HasDressing = true
		}
	}
	return z
}

// matchParen returns the contents of the parenthesized group opening at
// s[0], tracking nesting depth. Reports false when the group never
// closes.
func matchParen(s string) (string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits a child list on commas at parenthesis depth zero.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
