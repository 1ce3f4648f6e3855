package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwaghorn2000/oxidex/internal/engine/document"
	apperrors "github.com/mwaghorn2000/oxidex/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// failingExtractor simulates a metadata stat failure after a successful read.
type failingExtractor struct{}

func (failingExtractor) Extract(string) (document.Metadata, error) {
	return document.Metadata{}, errors.New("stat exploded")
}

func TestAddDocumentAssignsSequentialIDs(t *testing.T) {
	dir := t.TempDir()
	e := New()

	for i := 0; i < 3; i++ {
		path := writeFile(t, dir, "doc"+string(rune('a'+i))+".txt", "some words here")
		id, err := e.AddDocument(path)
		if err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
		if id != uint64(i) {
			t.Errorf("id = %d, want %d", id, i)
		}
	}
	if got := e.TotalDocs(); got != 3 {
		t.Errorf("TotalDocs = %d, want 3", got)
	}
}

func TestIDsNeverReusedAcrossRemovals(t *testing.T) {
	dir := t.TempDir()
	e := New()

	pathA := writeFile(t, dir, "a.txt", "alpha")
	pathB := writeFile(t, dir, "b.txt", "beta")

	idA, _ := e.AddDocument(pathA)
	idB, _ := e.AddDocument(pathB)

	if !e.RemoveID(idA) {
		t.Fatal("RemoveID(idA) = false, want true")
	}

	idC, err := e.AddDocument(pathA)
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	// Removal consumes ids; the next add continues the sequence.
	if idC != idB+1 {
		t.Errorf("id after removal = %d, want %d", idC, idB+1)
	}
}

func TestAddDocumentPopulatesEntry(t *testing.T) {
	dir := t.TempDir()
	e := New()

	path := writeFile(t, dir, "pets.txt", "Cat, Dog! dog")
	id, err := e.AddDocument(path)
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	entry, ok := e.GetDoc(id)
	if !ok {
		t.Fatal("GetDoc returned absent for a registered id")
	}
	if entry.Path != path {
		t.Errorf("entry.Path = %q, want %q", entry.Path, path)
	}
	if entry.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", entry.TokenCount)
	}
	if entry.Meta.IsDir {
		t.Error("IsDir = true for a regular file")
	}
	if entry.Meta.ModifiedTime == 0 {
		t.Error("ModifiedTime not captured")
	}

	if got := e.TermFrequency("dog", id); got != 2 {
		t.Errorf("TermFrequency(dog) = %d, want 2", got)
	}
	if got := e.TermFrequency("cat", id); got != 1 {
		t.Errorf("TermFrequency(cat) = %d, want 1", got)
	}
}

func TestAddDocumentReadFailure(t *testing.T) {
	e := New()

	_, err := e.AddDocument(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for unreadable file")
	}
	if !errors.Is(err, apperrors.ErrDocumentRead) {
		t.Errorf("error = %v, want ErrDocumentRead", err)
	}
	if e.TotalDocs() != 0 || e.TermCount() != 0 {
		t.Error("failed add must not mutate the engine")
	}
}

func TestAddDocumentStatFailureLeavesIndexUntouched(t *testing.T) {
	dir := t.TempDir()
	e := New(WithExtractor(failingExtractor{}))

	path := writeFile(t, dir, "a.txt", "cat dog")
	_, err := e.AddDocument(path)
	if err == nil {
		t.Fatal("expected error from failing extractor")
	}
	if !errors.Is(err, apperrors.ErrDocumentStat) {
		t.Errorf("error = %v, want ErrDocumentStat", err)
	}
	// The staged commit means a metadata failure leaves no postings for
	// the never-registered id.
	if e.TermCount() != 0 {
		t.Errorf("TermCount = %d after failed add, want 0", e.TermCount())
	}
	if e.TotalDocs() != 0 {
		t.Errorf("TotalDocs = %d after failed add, want 0", e.TotalDocs())
	}

	// The pending id was not consumed either.
	good := New()
	okPath := writeFile(t, dir, "b.txt", "fine")
	if id, err := good.AddDocument(okPath); err != nil || id != 0 {
		t.Fatalf("fresh engine add: id=%d err=%v", id, err)
	}
}

func TestRemoveIDCascade(t *testing.T) {
	dir := t.TempDir()
	e := New()

	idA, _ := e.AddDocument(writeFile(t, dir, "a.txt", "cat dog dog"))
	idB, _ := e.AddDocument(writeFile(t, dir, "b.txt", "dog dog"))

	if !e.RemoveID(idA) {
		t.Fatal("RemoveID(idA) = false")
	}
	if _, ok := e.GetDoc(idA); ok {
		t.Error("GetDoc(idA) present after removal")
	}
	if got := e.Search("cat"); len(got) != 0 {
		t.Errorf("search(cat) = %v after removing its only doc, want empty", got)
	}
	dogs := e.Search("dog")
	if len(dogs) != 1 || dogs[0].DocID != idB {
		t.Errorf("search(dog) = %v, want only doc %d", dogs, idB)
	}
}

func TestRemoveIDIdempotent(t *testing.T) {
	dir := t.TempDir()
	e := New()
	id, _ := e.AddDocument(writeFile(t, dir, "a.txt", "cat"))

	if !e.RemoveID(id) {
		t.Fatal("first removal should report true")
	}
	if e.RemoveID(id) {
		t.Error("second removal should report false")
	}
	if e.RemoveID(12345) {
		t.Error("removal of never-issued id should report false")
	}
}

func TestSearchUnseenTermIsEmpty(t *testing.T) {
	e := New()
	if got := e.Search("ghost"); len(got) != 0 {
		t.Errorf("search on empty engine = %v, want empty", got)
	}
}

func TestSearchDoesNotNormaliseQuery(t *testing.T) {
	dir := t.TempDir()
	e := New()
	if _, err := e.AddDocument(writeFile(t, dir, "a.txt", "Cat")); err != nil {
		t.Fatal(err)
	}
	// Indexed term is "cat"; the core matches the query verbatim.
	if got := e.Search("Cat"); len(got) != 0 {
		t.Errorf("search(%q) = %v, want empty (no query normalisation in core)", "Cat", got)
	}
	if got := e.Search("cat"); len(got) != 1 {
		t.Errorf("search(%q) = %v, want one hit", "cat", got)
	}
}

func TestSearchRankedScenario(t *testing.T) {
	dir := t.TempDir()
	e := New()

	idA, _ := e.AddDocument(writeFile(t, dir, "a.txt", "cat dog dog"))
	idB, _ := e.AddDocument(writeFile(t, dir, "b.txt", "dog dog"))

	results := e.Search("dog")
	if len(results) != 2 {
		t.Fatalf("search(dog) returned %d results, want 2", len(results))
	}
	// Both scores are negative (term in every doc); the less negative one
	// ranks first.
	if results[0].DocID != idA || results[1].DocID != idB {
		t.Errorf("order = [%d %d], want [%d %d]",
			results[0].DocID, results[1].DocID, idA, idB)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f then %f", results[0].Score, results[1].Score)
	}

	cats := e.Search("cat")
	if len(cats) != 1 || cats[0].DocID != idA {
		t.Errorf("search(cat) = %v, want only doc %d", cats, idA)
	}
}
