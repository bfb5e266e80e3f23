package zone

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Editing errors.
var (
	ErrNotContiguous   = errors.New("selected zones are not contiguous")
	ErrDifferentParent = errors.New("selected zones do not share a parent")
	ErrEmptySelection  = errors.New("no zones selected")
	ErrGroupTooSmall   = errors.New("grouping needs at least two zones")
)

// rewrite returns a copy of the tree where the node with the given id has
// been replaced by fn(node). Only the path from the root to the target is
// copied; untouched subtrees are shared by reference and must never be
// mutated in place. Returns ErrZoneNotFound if the id is absent.
func rewrite(root *Zone, id string, fn func(*Zone) (*Zone, error)) (*Zone, error) {
	if root == nil {
		return nil, ErrZoneNotFound
	}
	if root.ID == id {
		cp := *root
		return fn(&cp)
	}
	for i, c := range root.Children {
		sub, err := rewrite(c, id, fn)
		if err != nil {
			if errors.Is(err, ErrZoneNotFound) {
				continue
			}
			return nil, err
		}
		cp := *root
		cp.Children = make([]*Zone, len(root.Children))
		copy(cp.Children, root.Children)
		cp.Children[i] = sub
		return &cp, nil
	}
	return nil, ErrZoneNotFound
}

// Split converts a leaf into a split node along the given axis with count
// fresh empty-leaf children. Child ids derive deterministically from the
// parent id so that re-splitting the same zone yields the same addresses.
func Split(root *Zone, id string, axis NodeType, count int) (*Zone, error) {
	if axis != TypeHorizontal && axis != TypeVertical {
		return nil, fmt.Errorf("invalid split axis %q", axis)
	}
	if count < 2 {
		return nil, ErrTooFewChildren
	}
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if !z.IsLeaf() {
			return nil, fmt.Errorf("%w: %s", ErrNotLeaf, z.ID)
		}
		z.Type = axis
		z.Content = ContentNone
		z.SplitRatios = nil
		z.Children = make([]*Zone, count)
		for i := range z.Children {
			z.Children[i] = &Zone{
				ID:      fmt.Sprintf("%s-%d", z.ID, i),
				Type:    TypeLeaf,
				Content: ContentEmpty,
			}
		}
		return z, nil
	})
}

// SetContent replaces the content of a leaf zone.
func SetContent(root *Zone, id string, content Content) (*Zone, error) {
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if !z.IsLeaf() {
			return nil, fmt.Errorf("%w: %s", ErrNotLeaf, z.ID)
		}
		z.Content = content
		if !IsFrontContent(content) && z.DoorContent == ContentNone {
			z.HandleType = HandleNone
		}
		return z, nil
	})
}

// ToggleLight flips the LED lighting flag on a leaf.
func ToggleLight(root *Zone, id string) (*Zone, error) {
	return toggleFlag(root, id, func(z *Zone) { z.HasLight = !z.HasLight })
}

// ToggleCableHole flips the cable pass-through flag on a leaf.
func ToggleCableHole(root *Zone, id string) (*Zone, error) {
	return toggleFlag(root, id, func(z *Zone) { z.HasCableHole = !z.HasCableHole })
}

// ToggleDressing flips the wardrobe-rod overlay flag on a leaf.
func ToggleDressing(root *Zone, id string) (*Zone, error) {
	return toggleFlag(root, id, func(z *Zone) { z.HasDressing = !z.HasDressing })
}

func toggleFlag(root *Zone, id string, flip func(*Zone)) (*Zone, error) {
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if !z.IsLeaf() {
			return nil, fmt.Errorf("%w: %s", ErrNotLeaf, z.ID)
		}
		flip(z)
		return z, nil
	})
}

// SetDoorContent mounts or clears a door on any node, leaf or group. Pass
// ContentNone to clear. Non-door content kinds are rejected.
func SetDoorContent(root *Zone, id string, content Content) (*Zone, error) {
	if content != ContentNone && !IsDoorContent(content) {
		return nil, fmt.Errorf("%q is not a door content", content)
	}
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		z.DoorContent = content
		if content == ContentNone && !IsFrontContent(z.Content) {
			z.HandleType = HandleNone
		}
		return z, nil
	})
}

// SetHandleType sets the handle hardware on a door- or drawer-bearing
// node. Pass HandleNone to clear.
func SetHandleType(root *Zone, id string, handle HandleType) (*Zone, error) {
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if handle != HandleNone && !IsFrontContent(z.Content) && z.DoorContent == ContentNone {
			return nil, fmt.Errorf("zone %s has no door or drawer front", z.ID)
		}
		z.HandleType = handle
		return z, nil
	})
}

// SetColor sets or clears the finish override on any node. A nil color
// removes the override entirely.
func SetColor(root *Zone, id string, color *ZoneColor) (*Zone, error) {
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if color == nil {
			z.Color = nil
			return z, nil
		}
		cp := *color
		z.Color = &cp
		return z, nil
	})
}

// SetRatios replaces the percentage shares of a split node's children.
func SetRatios(root *Zone, id string, ratios []float64) (*Zone, error) {
	return rewrite(root, id, func(z *Zone) (*Zone, error) {
		if !z.IsSplit() {
			return nil, fmt.Errorf("%w: %s", ErrNotSplit, z.ID)
		}
		if len(ratios) != len(z.Children) {
			return nil, fmt.Errorf("%w: %s", ErrRatioCount, z.ID)
		}
		if err := ValidateRatios(ratios); err != nil {
			return nil, err
		}
		z.SplitRatios = make([]float64, len(ratios))
		copy(z.SplitRatios, ratios)
		return z, nil
	})
}

// Group replaces a contiguous run of sibling zones with one synthetic
// group node wrapping them, so that (for example) one door can cover
// several compartments. The group keeps the run's combined percentage
// share in the parent; shares inside the group are renormalized to 100.
// forcedDoor, when not ContentNone, is mounted on the new group node.
// Fails without mutation if the ids do not share an immediate parent or
// do not occupy a contiguous index range.
func Group(root *Zone, ids []string, forcedDoor Content) (*Zone, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	parent := findParentOf(root, ids[0])
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, ids[0])
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	indices := make([]int, 0, len(ids))
	for i, c := range parent.Children {
		if want[c.ID] {
			indices = append(indices, i)
			delete(want, c.ID)
		}
	}
	if len(want) > 0 {
		return nil, ErrDifferentParent
	}
	// A group of one would be a single-child split node, which the tree
	// invariants reject; covering a single zone is SetDoorContent's job.
	// Checked on the resolved indices so duplicated ids don't slip past.
	if len(indices) < 2 {
		return nil, ErrGroupTooSmall
	}
	lo, hi := indices[0], indices[len(indices)-1]
	if hi-lo+1 != len(indices) {
		return nil, ErrNotContiguous
	}

	return rewrite(root, parent.ID, func(p *Zone) (*Zone, error) {
		ratios := p.Ratios()
		runShare := 0.0
		for i := lo; i <= hi; i++ {
			runShare += ratios[i]
		}

		group := &Zone{
			ID:          "g-" + uuid.NewString(),
			Type:        p.Type,
			DoorContent: forcedDoor,
		}
		group.Children = make([]*Zone, 0, hi-lo+1)
		inner := make([]float64, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			group.Children = append(group.Children, p.Children[i].Clone())
			inner = append(inner, ratios[i]*100/runShare)
		}
		if !EqualRatios(inner) {
			group.SplitRatios = inner
		}

		children := make([]*Zone, 0, len(p.Children)-(hi-lo))
		outer := make([]float64, 0, len(p.Children)-(hi-lo))
		children = append(children, p.Children[:lo]...)
		outer = append(outer, ratios[:lo]...)
		children = append(children, group)
		outer = append(outer, runShare)
		children = append(children, p.Children[hi+1:]...)
		outer = append(outer, ratios[hi+1:]...)

		p.Children = children
		if EqualRatios(outer) {
			p.SplitRatios = nil
		} else {
			p.SplitRatios = outer
		}
		return p, nil
	})
}

// findParentOf returns the split node whose immediate children include
// the given id, or nil.
func findParentOf(root *Zone, id string) *Zone {
	if root == nil {
		return nil
	}
	for _, c := range root.Children {
		if c.ID == id {
			return root
		}
		if p := findParentOf(c, id); p != nil {
			return p
		}
	}
	return nil
}

// SelectRange implements click-pair range selection: given two child ids
// of the same parent, it returns the ids of the full inclusive index
// range between them, in child order. The two ids may be equal.
func SelectRange(root *Zone, firstID, secondID string) ([]string, error) {
	if firstID == secondID {
		return []string{firstID}, nil
	}
	parent := findParentOf(root, firstID)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, firstID)
	}
	first, second := -1, -1
	for i, c := range parent.Children {
		switch c.ID {
		case firstID:
			first = i
		case secondID:
			second = i
		}
	}
	if second == -1 {
		return nil, ErrDifferentParent
	}
	if first > second {
		first, second = second, first
	}
	ids := make([]string, 0, second-first+1)
	for i := first; i <= second; i++ {
		ids = append(ids, parent.Children[i].ID)
	}
	return ids, nil
}
