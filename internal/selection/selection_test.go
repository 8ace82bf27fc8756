package selection_test

import (
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/touchgrass/internal/selection"
)

func genIDs(t *rapid.T) []string {
	return rapid.SliceOfN(rapid.SampledFrom([]string{
		"com.app.a", "com.app.b", " com.app.c ", "", "category:social", "category:games",
	}), 0, 12).Draw(t, "ids")
}

// Property: normalizing twice equals normalizing once.
func TestNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		once := selection.Normalize(genIDs(t))
		twice := selection.Normalize(once)
		if !slices.Equal(once, twice) {
			t.Fatalf("not idempotent: %v vs %v", once, twice)
		}
		if !slices.IsSorted(once) {
			t.Fatalf("not sorted: %v", once)
		}
	})
}

// Property: toggling the same id twice restores the set.
func TestToggleTwiceRestores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := selection.New(genIDs(t)...)
		id := rapid.SampledFrom([]string{"com.app.a", "com.app.z", "category:social"}).Draw(t, "id")
		if got := s.Toggle(id).Toggle(id); !slices.Equal(got.IDs, s.IDs) {
			t.Fatalf("toggle twice: %v, want %v", got.IDs, s.IDs)
		}
	})
}

func TestAddRemove(t *testing.T) {
	s := selection.New("com.app.b", "com.app.a", "com.app.a", "  ")
	if !slices.Equal(s.IDs, []string{"com.app.a", "com.app.b"}) {
		t.Fatalf("New = %v", s.IDs)
	}
	s = s.Add("category:social").Remove("com.app.a")
	if !slices.Equal(s.IDs, []string{"category:social", "com.app.b"}) {
		t.Errorf("after add/remove = %v", s.IDs)
	}
	if !slices.Equal(s.Apps(), []string{"com.app.b"}) {
		t.Errorf("Apps = %v", s.Apps())
	}
	if !slices.Equal(s.Categories(), []string{"social"}) {
		t.Errorf("Categories = %v", s.Categories())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	st, err := selection.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	empty, err := st.Load()
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if !empty.Empty() {
		t.Errorf("expected empty selection, got %v", empty.IDs)
	}

	want := selection.New("com.app.a", "category:games")
	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(got.IDs, want.IDs) {
		t.Errorf("round-trip: got %v, want %v", got.IDs, want.IDs)
	}
}
