package sitecms

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test_site.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tick makes the store clock advance one second per call.
func tick(s *Store) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry failed: %v", err)
	}
	return reg
}

func testSchema(t *testing.T, name string) *content.Schema {
	t.Helper()
	s, ok := testRegistry(t).Get(name)
	if !ok {
		t.Fatalf("schema %q missing", name)
	}
	return s
}

// fenceDoc is a fence document that passes validation.
func fenceDoc(t *testing.T, id string) content.Document {
	t.Helper()
	s := testSchema(t, "fence")
	doc := s.NewDocument(id)
	doc.Fields["title"] = withText(doc.Fields["title"], "Хашаа", "Fence")
	doc.Lists["materials"] = []content.ListItem{
		{ID: "m1", Value: content.NewText("Мод", "Wood")},
		{ID: "m2", Value: content.NewText("Төмөр", "Steel")},
	}
	doc, _, err := content.AddBlock(s, doc, content.KindParagraph, "details")
	if err != nil {
		t.Fatalf("AddBlock failed: %v", err)
	}
	return doc
}

func withText(f content.Field, mn, en string) content.Field {
	f.Value = content.NewText(mn, en)
	return f
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	s := setupTestStore(t)
	tick(s)
	ctx := context.Background()
	doc := fenceDoc(t, "main")

	saved, err := s.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if saved.ID != "main" || saved.Version != 1 {
		t.Errorf("saved = %+v, want id main v1", saved)
	}

	got, err := s.GetDocument(ctx, "fence", "main")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Status != content.StatusDraft {
		t.Errorf("Status = %q, want draft", got.Status)
	}
	if !got.Equal(doc) {
		t.Errorf("stored document differs from saved one:\n got %+v\nwant %+v", got, doc)
	}
	if !got.UpdatedAt.Equal(saved.SavedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, saved.SavedAt)
	}
}

func TestSaveDocumentIdempotent(t *testing.T) {
	s := setupTestStore(t)
	tick(s)
	ctx := context.Background()
	doc := fenceDoc(t, "main")

	first, err := s.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	again, err := s.SaveDocument(ctx, doc.Clone())
	if err != nil {
		t.Fatalf("second SaveDocument failed: %v", err)
	}
	if again.Version != first.Version {
		t.Errorf("identical save bumped version %d -> %d", first.Version, again.Version)
	}
	if !again.SavedAt.Equal(first.SavedAt) {
		t.Errorf("identical save changed SavedAt %v -> %v", first.SavedAt, again.SavedAt)
	}

	doc.Fields["subtitle"] = withText(doc.Fields["subtitle"], "Шинэ", "New")
	changed, err := s.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("changed SaveDocument failed: %v", err)
	}
	if changed.Version != first.Version+1 {
		t.Errorf("Version = %d, want %d", changed.Version, first.Version+1)
	}
}

func TestSaveDocumentRequiresKey(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.SaveDocument(context.Background(), content.Document{ID: "x"}); err == nil {
		t.Error("expected error for missing resource")
	}
}

func TestPublishDocument(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	doc := fenceDoc(t, "main")
	if _, err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	if _, err := s.GetPublished(ctx, "fence", "main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPublished on draft = %v, want ErrNotFound", err)
	}

	if err := s.PublishDocument(ctx, "fence", "main"); err != nil {
		t.Fatalf("PublishDocument failed: %v", err)
	}
	if err := s.PublishDocument(ctx, "fence", "main"); err != nil {
		t.Fatalf("second PublishDocument failed: %v", err)
	}
	got, err := s.GetPublished(ctx, "fence", "main")
	if err != nil {
		t.Fatalf("GetPublished failed: %v", err)
	}
	if !got.Published() {
		t.Errorf("Status = %q, want published", got.Status)
	}

	// a later save keeps the published status
	doc.Status = content.StatusDraft
	doc.Fields["subtitle"] = withText(doc.Fields["subtitle"], "Шинэ", "New")
	if _, err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	got, err = s.GetDocument(ctx, "fence", "main")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if !got.Published() {
		t.Errorf("save dropped published status: %q", got.Status)
	}
}

func TestPublishDocumentNotFound(t *testing.T) {
	s := setupTestStore(t)
	if err := s.PublishDocument(context.Background(), "fence", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetDocument(context.Background(), "fence", "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, editor.ErrNotFound) {
		t.Errorf("store ErrNotFound should match editor.ErrNotFound")
	}
}

func TestDeleteItem(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	doc := fenceDoc(t, "main")
	first, err := s.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	if err := s.DeleteItem(ctx, "fence", "main", "materials", "m1"); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	got, err := s.GetDocument(ctx, "fence", "main")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if len(got.Lists["materials"]) != 1 || got.Lists["materials"][0].ID != "m2" {
		t.Errorf("materials = %+v, want only m2", got.Lists["materials"])
	}

	blockID := doc.Blocks[len(doc.Blocks)-1].ID
	if err := s.DeleteItem(ctx, "fence", "main", editor.CollectionBlocks, blockID); err != nil {
		t.Fatalf("DeleteItem block failed: %v", err)
	}
	got, _ = s.GetDocument(ctx, "fence", "main")
	if _, ok := got.Block(blockID); ok {
		t.Errorf("block %s still present", blockID)
	}

	infos, err := s.ListDocuments(ctx, "fence")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	version := infos[0].Version
	if version != first.Version+2 {
		t.Errorf("Version = %d, want %d", version, first.Version+2)
	}

	// deleting again is a no-op
	if err := s.DeleteItem(ctx, "fence", "main", "materials", "m1"); err != nil {
		t.Fatalf("repeated DeleteItem failed: %v", err)
	}
	infos, _ = s.ListDocuments(ctx, "fence")
	if infos[0].Version != version {
		t.Errorf("repeated delete bumped version to %d", infos[0].Version)
	}

	if err := s.DeleteItem(ctx, "fence", "nope", "materials", "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteItem on missing doc = %v, want ErrNotFound", err)
	}
}

func TestListDocumentsAndPublished(t *testing.T) {
	s := setupTestStore(t)
	tick(s)
	ctx := context.Background()

	for _, id := range []string{"main", "second"} {
		if _, err := s.SaveDocument(ctx, fenceDoc(t, id)); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}
	about := testSchema(t, "about").NewDocument("main")
	if _, err := s.SaveDocument(ctx, about); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := s.PublishDocument(ctx, "fence", "second"); err != nil {
		t.Fatalf("PublishDocument failed: %v", err)
	}

	all, err := s.ListDocuments(ctx, "")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListDocuments count = %d, want 3", len(all))
	}
	if all[0].Resource != "about" {
		t.Errorf("newest first: got %s/%s", all[0].Resource, all[0].ID)
	}

	fences, _ := s.ListDocuments(ctx, "fence")
	if len(fences) != 2 {
		t.Errorf("ListDocuments(fence) count = %d, want 2", len(fences))
	}

	published, err := s.ListPublished(ctx)
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(published) != 1 || published[0].ID != "second" {
		t.Errorf("ListPublished = %+v, want fence/second", published)
	}
}
