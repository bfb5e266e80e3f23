package codec

import (
	"math"
	"strings"
	"testing"

	"github.com/atelierforma/configurator/internal/zone"
)

func defaultGlobal() zone.GlobalConfig {
	return zone.GlobalConfig{Width: 1500, Height: 730, Depth: 500, Plinth: zone.PlinthNone}
}

// TestEncodeEmpty pins the minimal prompt shape: tag, dimension triplet
// in (width,depth,height) order, the fixed flag literal, empty tree.
func TestEncodeEmpty(t *testing.T) {
	got := Encode(defaultGlobal(), zone.DefaultTree())
	want := "B(1500,500,730)Me"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestEncodeFlags tests plinth and global door flag emission.
func TestEncodeFlags(t *testing.T) {
	tests := []struct {
		name   string
		plinth zone.PlinthType
		door   zone.DoorType
		want   string
	}{
		{name: "no flags", plinth: zone.PlinthNone, door: zone.DoorNone, want: "B(1500,500,730)Me"},
		{name: "metal plinth", plinth: zone.PlinthMetal, door: zone.DoorNone, want: "B(1500,500,730)MeS"},
		{name: "wood plinth", plinth: zone.PlinthWood, door: zone.DoorNone, want: "B(1500,500,730)MeS2"},
		{name: "double door", plinth: zone.PlinthNone, door: zone.DoorDouble, want: "B(1500,500,730)MeP2"},
		{name: "left door on wood plinth", plinth: zone.PlinthWood, door: zone.DoorLeft, want: "B(1500,500,730)MeS2Pg"},
		{name: "right door", plinth: zone.PlinthNone, door: zone.DoorRight, want: "B(1500,500,730)MePd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := defaultGlobal()
			g.Plinth = tt.plinth
			g.DoorType = tt.door
			if got := Encode(g, zone.DefaultTree()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestGlobalDoorSuppressedByZoneDoor verifies global and per-zone doors
// are mutually exclusive on the wire.
func TestGlobalDoorSuppressedByZoneDoor(t *testing.T) {
	g := defaultGlobal()
	g.DoorType = zone.DoorDouble

	tree := &zone.Zone{ID: "root", Type: zone.TypeVertical, Children: []*zone.Zone{
		{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentEmpty, DoorContent: zone.ContentDoor},
		{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}}

	got := Encode(g, tree)
	if strings.Contains(got, "MeP2") {
		t.Errorf("global door must not be emitted when a zone door exists: %q", got)
	}
}

// TestEncodeHorizontalReversal pins the external-contract quirk: a
// horizontal split emits its children bottom-up, ratios included.
func TestEncodeHorizontalReversal(t *testing.T) {
	tree := &zone.Zone{ID: "root", Type: zone.TypeHorizontal, SplitRatios: []float64{20, 30, 50}, Children: []*zone.Zone{
		{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDrawer},
		{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentGlassShelf},
		{ID: "root-2", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}}

	got := Encode(defaultGlobal(), tree)
	want := "B(1500,500,730)MeH[50,30,20](,v,T)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestEncodeVerticalOrderPreserved verifies vertical children are not
// reversed.
func TestEncodeVerticalOrderPreserved(t *testing.T) {
	tree := &zone.Zone{ID: "root", Type: zone.TypeVertical, Children: []*zone.Zone{
		{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDrawer},
		{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}}

	got := Encode(defaultGlobal(), tree)
	want := "B(1500,500,730)MeV2(T,)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestEncodeLeafMarkers tests content codes, handle digits, and the
// cable/dressing markers.
func TestEncodeLeafMarkers(t *testing.T) {
	tests := []struct {
		name string
		leaf zone.Zone
		want string
	}{
		{
			name: "drawer with knob",
			leaf: zone.Zone{Content: zone.ContentDrawer, HandleType: zone.HandleKnob},
			want: "T3",
		},
		{
			name: "push drawer",
			leaf: zone.Zone{Content: zone.ContentPushDrawer},
			want: "To",
		},
		{
			name: "glass shelf with cable hole",
			leaf: zone.Zone{Content: zone.ContentGlassShelf, HasCableHole: true},
			want: "vc",
		},
		{
			name: "drawer with dressing overlay",
			leaf: zone.Zone{Content: zone.ContentDrawer, HasDressing: true},
			want: "TD",
		},
		{
			name: "dressing content with dressing overlay keeps both",
			leaf: zone.Zone{Content: zone.ContentDressing, HasDressing: true},
			want: "DD",
		},
		{
			name: "leaf door with vertical bar",
			leaf: zone.Zone{Content: zone.ContentDoorRight, HandleType: zone.HandleVerticalBar},
			want: "Pd1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := tt.leaf
			leaf.ID = "root-0"
			leaf.Type = zone.TypeLeaf
			tree := &zone.Zone{ID: "root", Type: zone.TypeVertical, Children: []*zone.Zone{
				&leaf,
				{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
			}}
			got := Encode(defaultGlobal(), tree)
			want := "B(1500,500,730)MeV2(" + tt.want + ",)"
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	}
}

// TestEncodeDoorWrapper tests mounted doors wrapping a node's encoding.
func TestEncodeDoorWrapper(t *testing.T) {
	tree := &zone.Zone{
		ID: "root", Type: zone.TypeHorizontal,
		DoorContent: zone.ContentMirrorDoor, HandleType: zone.HandleRecessed,
		Children: []*zone.Zone{
			{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDrawer},
			{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
		},
	}

	got := Encode(defaultGlobal(), tree)
	want := "B(1500,500,730)MePm4(H2(,T))"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestEncodeRootDoorLeaf pins the root-position disambiguation: a bare
// door code directly after the flag segment would read back as a global
// door flag, so a root leaf carrying door content takes the wrapper form.
func TestEncodeRootDoorLeaf(t *testing.T) {
	tree := &zone.Zone{ID: "root", Type: zone.TypeLeaf, Content: zone.ContentDoor}

	got := Encode(defaultGlobal(), tree)
	want := "B(1500,500,730)MePg()"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	g, decoded := Decode(got)
	if g.DoorType != "" && g.DoorType != zone.DoorNone {
		t.Errorf("root door leaf decoded as global door %q", g.DoorType)
	}
	if !decoded.HasZoneDoor() {
		t.Error("decoded tree lost the door")
	}
	// The grammar cannot carry the content-vs-mounted distinction; the
	// root door canonicalizes to a mounted door over an empty leaf.
	if decoded.DoorContent != zone.ContentDoor || decoded.Content != zone.ContentEmpty {
		t.Errorf("decoded root = %+v, want mounted door over empty leaf", decoded)
	}

	// Re-encoding the canonical form is byte-stable.
	if again := Encode(g, decoded); again != got {
		t.Errorf("re-encode not stable: %q vs %q", got, again)
	}
}

// TestBareDoorAfterFlagsReadsAsGlobal pins the reading of the ambiguous
// legacy form: a door code with nothing after it is the flag-segment
// global door over an empty tree.
func TestBareDoorAfterFlagsReadsAsGlobal(t *testing.T) {
	g, root := Decode("B(900,500,2000)MePg")
	if g.DoorType != zone.DoorLeft {
		t.Errorf("door = %q, want %q", g.DoorType, zone.DoorLeft)
	}
	if !root.IsLeaf() || root.Content != zone.ContentEmpty {
		t.Errorf("tree = %+v, want empty leaf", root)
	}
}

// TestDressingOverlayRoundTrip verifies the overlay flag survives the
// wire even when the compartment content is itself a dressing unit.
func TestDressingOverlayRoundTrip(t *testing.T) {
	tree := &zone.Zone{ID: "root", Type: zone.TypeVertical, Children: []*zone.Zone{
		{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDressing, HasDressing: true},
		{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}}

	prompt := Encode(defaultGlobal(), tree)
	_, decoded := Decode(prompt)

	leaf := decoded.Find("root-0")
	if leaf == nil {
		t.Fatalf("decoded tree lost root-0: %q", prompt)
	}
	if leaf.Content != zone.ContentDressing {
		t.Errorf("content = %q, want %q", leaf.Content, zone.ContentDressing)
	}
	if !leaf.HasDressing {
		t.Errorf("dressing overlay lost across %q", prompt)
	}
	if !decoded.Equal(tree) {
		t.Errorf("round trip lost structure:\nwant %+v\ngot  %+v", tree, decoded)
	}
}

// TestDecodeDimensions tests triplet parsing and the default fallback.
func TestDecodeDimensions(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		w, d, h float64
	}{
		{name: "integers", prompt: "B(1500,500,730)Me", w: 1500, d: 500, h: 730},
		{name: "decimals", prompt: "B(1500.5,500,730)Me", w: 1500.5, d: 500, h: 730},
		{name: "garbage falls back to defaults", prompt: "nonsense", w: zone.DefaultWidth, d: zone.DefaultDepth, h: zone.DefaultHeight},
		{name: "empty prompt", prompt: "", w: zone.DefaultWidth, d: zone.DefaultDepth, h: zone.DefaultHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, root := Decode(tt.prompt)
			if g.Width != tt.w || g.Depth != tt.d || g.Height != tt.h {
				t.Errorf("expected %gx%gx%g, got %gx%gx%g", tt.w, tt.d, tt.h, g.Width, g.Depth, g.Height)
			}
			if root == nil {
				t.Fatal("decode must always return a tree")
			}
			if err := root.Validate(); err != nil {
				t.Errorf("decoded tree should validate: %v", err)
			}
		})
	}
}

// TestDecodeFlags tests plinth and global door detection.
func TestDecodeFlags(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		plinth zone.PlinthType
		door   zone.DoorType
	}{
		{name: "none", prompt: "B(1000,500,2000)Me", plinth: zone.PlinthNone, door: zone.DoorNone},
		{name: "metal", prompt: "B(1000,500,2000)MeS", plinth: zone.PlinthMetal, door: zone.DoorNone},
		{name: "wood", prompt: "B(1000,500,2000)MeS2", plinth: zone.PlinthWood, door: zone.DoorNone},
		{name: "wood with double door", prompt: "B(1000,500,2000)MeS2P2", plinth: zone.PlinthWood, door: zone.DoorDouble},
		{name: "global door before split", prompt: "B(1000,500,2000)MePgV2(,)", plinth: zone.PlinthNone, door: zone.DoorLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := Decode(tt.prompt)
			if g.Plinth != tt.plinth {
				t.Errorf("expected plinth %q, got %q", tt.plinth, g.Plinth)
			}
			if g.DoorType != tt.door && !(tt.door == zone.DoorNone && g.DoorType == "") {
				t.Errorf("expected door %q, got %q", tt.door, g.DoorType)
			}
		})
	}
}

// TestDecodeMalformedDegradesToLeaf verifies decode never fails.
func TestDecodeMalformedDegradesToLeaf(t *testing.T) {
	prompts := []string{
		"B(1000,500,2000)MeH[20,30(T,v)",  // unclosed ratio list
		"B(1000,500,2000)MeV2(T",          // unclosed children
		"B(1000,500,2000)MeX7!!",          // unknown tokens
		"B(1000,500,2000)MeH1(T)",         // single-child split
	}

	for _, p := range prompts {
		g, root := Decode(p)
		if root == nil {
			t.Fatalf("%q: decode must return a tree", p)
		}
		if !root.IsLeaf() || root.Content != zone.ContentEmpty {
			t.Errorf("%q: expected empty leaf, got %+v", p, root)
		}
		if g.Width != 1000 {
			t.Errorf("%q: dimensions should still parse", p)
		}
	}
}

// TestHorizontalRoundTrip is the order-inversion property: a horizontal
// split [A,B,C] with ratios [20,30,50] survives the wire reversal in
// both directions.
func TestHorizontalRoundTrip(t *testing.T) {
	tree := &zone.Zone{ID: "root", Type: zone.TypeHorizontal, SplitRatios: []float64{20, 30, 50}, Children: []*zone.Zone{
		{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDrawer},
		{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentGlassShelf},
		{ID: "root-2", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}}

	_, decoded := Decode(Encode(defaultGlobal(), tree))

	if !decoded.Equal(tree) {
		t.Errorf("round trip lost structure:\nwant %+v\ngot  %+v", tree, decoded)
	}
	ratios := decoded.Ratios()
	want := []float64{20, 30, 50}
	for i := range want {
		if math.Abs(ratios[i]-want[i]) > zone.RatioTolerance {
			t.Errorf("ratio %d: expected %g, got %g", i, want[i], ratios[i])
		}
	}
	if decoded.Children[0].Content != zone.ContentDrawer {
		t.Error("logical top child should be the drawer after re-reversal")
	}
}

// TestRoundTrip exercises decode(encode(x)) == x across representative
// configurations.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		global zone.GlobalConfig
		tree   *zone.Zone
	}{
		{
			name:   "empty body",
			global: zone.GlobalConfig{Width: 1200, Height: 2100, Depth: 450, Plinth: zone.PlinthWood},
			tree:   zone.DefaultTree(),
		},
		{
			name:   "global double door",
			global: zone.GlobalConfig{Width: 800, Height: 2000, Depth: 600, Plinth: zone.PlinthMetal, DoorType: zone.DoorDouble},
			tree:   zone.DefaultTree(),
		},
		{
			name:   "nested splits with doors and markers",
			global: zone.GlobalConfig{Width: 2400, Height: 2200, Depth: 550, Plinth: zone.PlinthMetal},
			tree: &zone.Zone{ID: "root", Type: zone.TypeVertical, SplitRatios: []float64{40, 60}, Children: []*zone.Zone{
				{ID: "root-0", Type: zone.TypeHorizontal, Children: []*zone.Zone{
					{ID: "root-0-0", Type: zone.TypeLeaf, Content: zone.ContentDrawer, HandleType: zone.HandleKnob},
					{ID: "root-0-1", Type: zone.TypeLeaf, Content: zone.ContentPushDrawer},
					{ID: "root-0-2", Type: zone.TypeLeaf, Content: zone.ContentGlassShelf, HasCableHole: true},
				}},
				{
					ID: "root-1", Type: zone.TypeHorizontal, DoorContent: zone.ContentDoor, HandleType: zone.HandleVerticalBar,
					SplitRatios: []float64{25, 75},
					Children: []*zone.Zone{
						{ID: "root-1-0", Type: zone.TypeLeaf, Content: zone.ContentDressing},
						{ID: "root-1-1", Type: zone.TypeLeaf, Content: zone.ContentEmpty, HasCableHole: true},
					},
				},
			}},
		},
		{
			name:   "leaf doors with handles",
			global: zone.GlobalConfig{Width: 900, Height: 1800, Depth: 400},
			tree: &zone.Zone{ID: "root", Type: zone.TypeVertical, Children: []*zone.Zone{
				{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentDoorRight, HandleType: zone.HandleVerticalBar},
				{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentPushDoor},
			}},
		},
		{
			name:   "fractional ratios",
			global: zone.GlobalConfig{Width: 1000, Height: 2000, Depth: 500},
			tree: &zone.Zone{ID: "root", Type: zone.TypeVertical, SplitRatios: []float64{33.3, 33.3, 33.4}, Children: []*zone.Zone{
				{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
				{ID: "root-1", Type: zone.TypeLeaf, Content: zone.ContentDrawer},
				{ID: "root-2", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := Encode(tt.global, tt.tree)
			g, decoded := Decode(prompt)

			if !decoded.Equal(tt.tree) {
				t.Errorf("tree round trip failed for %q:\nwant %+v\ngot  %+v", prompt, tt.tree, decoded)
			}
			if g.Width != tt.global.Width || g.Height != tt.global.Height || g.Depth != tt.global.Depth {
				t.Errorf("dimension round trip failed for %q", prompt)
			}
			if tt.global.Plinth != zone.PlinthNone && g.Plinth != tt.global.Plinth {
				t.Errorf("plinth round trip failed for %q: got %q", prompt, g.Plinth)
			}
			if tt.global.DoorType != "" && tt.global.DoorType != zone.DoorNone && !tt.tree.HasZoneDoor() && g.DoorType != tt.global.DoorType {
				t.Errorf("global door round trip failed for %q: got %q", prompt, g.DoorType)
			}

			// Re-encoding the decoded pair must be byte-stable.
			if again := Encode(g, decoded); again != prompt {
				t.Errorf("re-encode not stable: %q vs %q", prompt, again)
			}
		})
	}
}
