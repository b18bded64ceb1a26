package ledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/model"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "data", "used-codes.json"))

	entries, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected missing file to load as empty, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty map, got %d entries", len(entries))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used-codes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ledger.NewFileStore(path).Load(context.Background())
	if !errors.Is(err, ledger.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for unparseable store, got %v", err)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "used-codes.json")
	store := ledger.NewFileStore(path)

	want := map[string]model.LedgerEntry{
		"AB12C": {
			Code:            "AB12C",
			Email:           "a@b.com",
			Timestamp:       time.Date(2025, 12, 1, 10, 30, 0, 0, time.UTC),
			Website:         "rubbellos.sweetsausallerwelt.de",
			Campaign:        "rubbellos_2025",
			FirstName:       "Anna",
			LastName:        "Muster",
			NewsletterOptIn: true,
		},
	}

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got["AB12C"] != want["AB12C"] {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", got["AB12C"], want["AB12C"])
	}
}

func TestFileLedgerPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "used-codes.json")

	first := ledger.New(ledger.NewFileStore(path))
	if _, err := first.Commit(ctx, "AB12C", "a@b.com", "2025", model.EntryMetadata{}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	second := ledger.New(ledger.NewFileStore(path))
	prior, err := second.CodeExists(ctx, "AB12C")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if prior == nil {
		t.Fatal("expected commit to be visible to a fresh ledger instance")
	}
}
