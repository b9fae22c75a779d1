package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"xdao.co/poe/cidutil"
	"xdao.co/poe/storage"
	"xdao.co/poe/storage/testkit"
)

func TestConformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return cas
	})
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	cas, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := cas.Put([]byte("original"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Corrupt the stored object on disk behind the CAS's back.
	s := id.String()
	path := filepath.Join(dir, s[:2], s)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := os.WriteFile(path, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := cas.Get(id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get corrupted: got err=%v want ErrCIDMismatch", err)
	}
}

func TestPutExistingMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	cas, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := cas.Put([]byte("payload"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	s := id.String()
	path := filepath.Join(dir, s[:2], s)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := os.WriteFile(path, []byte("different"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := cas.Put([]byte("payload")); err != storage.ErrImmutable {
		t.Fatalf("Put over corrupted object: got err=%v want ErrImmutable", err)
	}
}

func TestFanOutLayout(t *testing.T) {
	dir := t.TempDir()
	cas, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload := []byte("layout check")
	id, err := cas.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want, err := cidutil.FingerprintCID(payload)
	if err != nil {
		t.Fatalf("FingerprintCID: %v", err)
	}
	s := want.String()
	if _, err := os.Stat(filepath.Join(dir, s[:2], s)); err != nil {
		t.Fatalf("expected object at two-level fan-out path: %v", err)
	}
	_ = id
}
