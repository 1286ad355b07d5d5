package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kalambet/pronouns/internal/pronoun"
)

var ctx = context.Background()

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 applied migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestSaveAndLoadPronouns(t *testing.T) {
	s := openTestStore(t)

	she, _ := pronoun.Preset("she")
	it, _ := pronoun.Preset("it")
	want := map[string]pronoun.Record{
		"alice.png": she,
		"robot.png": it,
		"partial":   {Subjective: "xe"},
	}
	if err := s.SavePronouns(ctx, want); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}

	got, err := s.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d personas, want %d", len(got), len(want))
	}
	for id, r := range want {
		if got[id] != r {
			t.Errorf("persona %q = %+v, want %+v", id, got[id], r)
		}
	}
}

// TestSavePronounsReplaces verifies personas missing from a later save are removed.
func TestSavePronounsReplaces(t *testing.T) {
	s := openTestStore(t)

	she, _ := pronoun.Preset("she")
	he, _ := pronoun.Preset("he")
	if err := s.SavePronouns(ctx, map[string]pronoun.Record{"a": she, "b": he}); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}
	if err := s.SavePronouns(ctx, map[string]pronoun.Record{"b": she}); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}

	got, err := s.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	if _, ok := got["a"]; ok {
		t.Error("persona a should have been removed")
	}
	if got["b"] != she {
		t.Errorf("persona b = %+v, want %+v", got["b"], she)
	}
}

// TestNullColumnsLoadEmpty covers rows written by older clients with missing fields.
func TestNullColumnsLoadEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(`INSERT INTO persona_pronouns (persona_id, subjective, updated_at)
		VALUES ('legacy', 'they', '2025-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetPronouns(ctx, "legacy")
	if err != nil {
		t.Fatalf("GetPronouns: %v", err)
	}
	want := pronoun.Record{Subjective: "they"}
	if got != want {
		t.Errorf("GetPronouns = %+v, want %+v", got, want)
	}

	all, err := s.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	if all["legacy"] != want {
		t.Errorf("LoadPronouns[legacy] = %+v, want %+v", all["legacy"], want)
	}
}

func TestGetPronounsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetPronouns(ctx, "nobody")
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecentReplacements(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		r := Replacement{
			ID:        fmt.Sprintf("r-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			PersonaID: "alice",
			Mode:      "long",
			Input:     "she",
			Output:    "{{pronoun.subjective}}",
		}
		if err := s.SaveReplacement(ctx, r); err != nil {
			t.Fatalf("SaveReplacement: %v", err)
		}
	}

	got, err := s.RecentReplacements(ctx, 3)
	if err != nil {
		t.Fatalf("RecentReplacements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d replacements, want 3", len(got))
	}
	if got[0].ID != "r-4" {
		t.Errorf("first = %q, want newest r-4", got[0].ID)
	}
	if !got[0].CreatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, base.Add(4*time.Minute))
	}
	if got[0].Output != "{{pronoun.subjective}}" {
		t.Errorf("Output = %q", got[0].Output)
	}
}

func TestPruneReplacements(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		r := Replacement{
			ID:        fmt.Sprintf("p-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Mode:      "long",
			Input:     "he",
			Output:    "{{pronoun.subjective}}",
		}
		if err := s.SaveReplacement(ctx, r); err != nil {
			t.Fatalf("SaveReplacement: %v", err)
		}
	}

	n, err := s.PruneReplacements(ctx, 2)
	if err != nil {
		t.Fatalf("PruneReplacements: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}

	left, err := s.RecentReplacements(ctx, 10)
	if err != nil {
		t.Fatalf("RecentReplacements: %v", err)
	}
	if len(left) != 2 || left[0].ID != "p-3" || left[1].ID != "p-2" {
		t.Errorf("remaining = %+v, want p-3 and p-2", left)
	}
}
