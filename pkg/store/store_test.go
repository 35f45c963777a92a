package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "roll.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	recs, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All on empty store: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected 0 records, got %d", len(recs))
	}
}

func TestAppendBatch_PreservesOrder(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	ids, err := s.AppendBatch(ctx, []map[string]any{
		{"Name": "Ravi Kumar", "Booth Number": "12"},
		{"Name": "Sita Devi", "Booth Number": "7"},
		{"Name": "Amit", "age": 44},
	})
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %d, want 3", len(ids))
	}

	recs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	for i, r := range recs {
		if r.ID != ids[i] {
			t.Errorf("record %d id = %s, want %s", i, r.ID, ids[i])
		}
	}
	if recs[1].Fields["Name"] != "Sita Devi" {
		t.Errorf("second record name = %v", recs[1].Fields["Name"])
	}
	// JSON numbers come back as float64.
	if recs[2].Fields["age"] != float64(44) {
		t.Errorf("age = %#v, want float64(44)", recs[2].Fields["age"])
	}
}

func TestAppend_UniqueIDs(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	a, err := s.Append(ctx, map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	b, err := s.Append(ctx, map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if a == b || a == "" {
		t.Errorf("ids not unique: %q %q", a, b)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
}

func TestPatch(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	id, err := s.Append(ctx, map[string]any{"name": "Ravi", "boothNumber": "12", "note": "x"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Patch(ctx, id, map[string]any{"boothNumber": "14", "phone": "98100", "note": nil}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Fields["boothNumber"] != "14" || rec.Fields["phone"] != "98100" || rec.Fields["name"] != "Ravi" {
		t.Errorf("patched fields = %v", rec.Fields)
	}
	if _, ok := rec.Fields["note"]; ok {
		t.Error("nil patch value should delete the key")
	}
}

func TestPatch_NotFound(t *testing.T) {
	s := tempStore(t)
	err := s.Patch(context.Background(), "missing", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
}

func TestAssignments(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.Assign(ctx, "7", "anita"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := s.Assign(ctx, "12", "vikram"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := s.Assign(ctx, "7", "rahul"); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	as, err := s.Assignments(ctx)
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(as) != 2 {
		t.Fatalf("assignments = %d, want 2", len(as))
	}
	// Ordered by booth as text.
	if as[0].Booth != "12" || as[1].Booth != "7" || as[1].Member != "rahul" {
		t.Errorf("assignments = %+v", as)
	}

	if err := s.Unassign(ctx, "12"); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if err := s.Unassign(ctx, "12"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Unassign err = %v, want ErrNotFound", err)
	}
	if err := s.Assign(ctx, "", "x"); err == nil {
		t.Error("expected error for empty booth")
	}
}
