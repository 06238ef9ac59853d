package catalog

import (
	"testing"

	"github.com/meltforce/fittrack/internal/models"
)

// TestByID verifies lookups for known and unknown ids.
func TestByID(t *testing.T) {
	ex, ok := ByID(101)
	if !ok {
		t.Fatal("expected exercise 101")
	}
	if ex.Name != "Barbell Bench Press" || ex.Type != models.TypeCompound {
		t.Errorf("exercise = %+v", ex)
	}

	if _, ok := ByID(9999); ok {
		t.Error("unexpected hit for unknown id")
	}
}

// TestSearch verifies case-insensitive matching on name and muscle group,
// and that an empty query returns the whole catalog.
func TestSearch(t *testing.T) {
	if got := Search(""); len(got) != len(All()) {
		t.Errorf("empty query = %d results, want full catalog", len(got))
	}

	byName := Search("bench")
	if len(byName) != 1 || byName[0].ID != 101 {
		t.Errorf("Search(bench) = %+v, want only 101", byName)
	}

	byGroup := Search("CHEST")
	if len(byGroup) != 2 {
		t.Errorf("Search(CHEST) = %d results, want 2", len(byGroup))
	}

	if got := Search("zzz"); len(got) != 0 {
		t.Errorf("Search(zzz) = %d results, want 0", len(got))
	}
}

// TestAllReturnsCopy verifies that mutating the returned slice does not
// corrupt the catalog.
func TestAllReturnsCopy(t *testing.T) {
	All()[0].Name = "mutated"
	if ex, _ := ByID(101); ex.Name != "Barbell Bench Press" {
		t.Error("catalog table was mutated through All()")
	}
}

// TestStarterTemplates verifies the seeded Push/Pull/Legs templates resolve
// every row against the catalog.
func TestStarterTemplates(t *testing.T) {
	tpls := StarterTemplates()
	if len(tpls) != 3 {
		t.Fatalf("templates = %d, want 3", len(tpls))
	}
	for _, tpl := range tpls {
		if !tpl.BuiltIn {
			t.Errorf("%s: built_in flag not set", tpl.ID)
		}
		if len(tpl.Items) == 0 {
			t.Errorf("%s: no items", tpl.ID)
		}
		for _, it := range tpl.Items {
			ex, ok := ByID(it.ExerciseID)
			if !ok {
				t.Errorf("%s: unknown exercise %d", tpl.ID, it.ExerciseID)
				continue
			}
			if it.Name != ex.Name || it.Type != ex.Type {
				t.Errorf("%s: row %d does not match catalog entry", tpl.ID, it.ExerciseID)
			}
			if it.Sets < 1 {
				t.Errorf("%s: row %d has no sets", tpl.ID, it.ExerciseID)
			}
		}
	}
}
