package store

import (
	"math"
	"testing"
)

type point struct{ X, Y int }

type holder struct{ V any }

func TestSame(t *testing.T) {
	m := map[string]int{"a": 1}
	s := []int{1, 2, 3}
	p := &point{1, 2}
	fn := func() {}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"int vs int64", 1, int64(1), false},
		{"equal strings", "a", "a", true},
		{"NaN", math.NaN(), math.NaN(), false},
		{"equal structs", point{1, 2}, point{1, 2}, true},
		{"same map", m, m, true},
		{"equal maps, different identity", m, map[string]int{"a": 1}, false},
		{"same slice", s, s, true},
		{"resliced", s, s[:2], false},
		{"equal slices, different identity", s, []int{1, 2, 3}, false},
		{"same pointer", p, p, true},
		{"equal pointees", p, &point{1, 2}, false},
		{"funcs", fn, fn, false},
		{"struct holding slice", holder{s}, holder{s}, false},
		{"struct holding int", holder{1}, holder{1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Same(tt.a, tt.b); got != tt.want {
				t.Errorf("Same(%v, %v)=%v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	old := Snapshot{"x": 1, "y": "a", "keep": true}
	partial := map[string]any{"x": 1, "y": "b", "z": nil, "w": 0}

	changes := Diff(old, partial)

	// z is absent and written as nil: same as missing, so not reported
	want := []string{"w", "y"}
	got := changes.Keys()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Diff keys=%v, want %v", got, want)
	}
	if c := changes["y"]; c.Old != "a" || c.New != "b" {
		t.Errorf("changes[y]=%+v", c)
	}
	if changes.Has("keep") {
		t.Error("keys not in partial must never be reported")
	}
}

func TestSnapshotClone(t *testing.T) {
	var nilSnap Snapshot
	c := nilSnap.Clone()
	if c == nil {
		t.Fatal("Clone of nil snapshot must be non-nil")
	}

	orig := Snapshot{"a": 1}
	cp := orig.Clone()
	cp["a"] = 2
	if orig["a"] != 1 {
		t.Error("Clone must not alias the original")
	}
}
