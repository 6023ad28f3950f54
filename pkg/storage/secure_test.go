package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	file := NewSecureFile(filepath.Join(t.TempDir(), "data.json"))
	password := []byte("hunter2hunter2")

	in := testDoc{Name: "alpha", Count: 7}
	if err := file.Save(in, password); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out testDoc
	if err := file.Load(&out, password); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
}

func TestLoadWrongPassword(t *testing.T) {
	file := NewSecureFile(filepath.Join(t.TempDir(), "data.json"))

	if err := file.Save(testDoc{Name: "alpha"}, []byte("right")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out testDoc
	err := file.Load(&out, []byte("wrong"))
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("Load error = %v, want ErrInvalidPassword", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	file := NewSecureFile(filepath.Join(t.TempDir(), "missing.json"))

	var out testDoc
	err := file.Load(&out, []byte("pw"))
	if !os.IsNotExist(err) {
		t.Fatalf("Load error = %v, want a not-exist error", err)
	}
}

func TestCiphertextNeverRepeats(t *testing.T) {
	dir := t.TempDir()
	password := []byte("hunter2hunter2")
	doc := testDoc{Name: "alpha", Count: 1}

	first := NewSecureFile(filepath.Join(dir, "a.json"))
	if err := first.Save(doc, password); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := NewSecureFile(filepath.Join(dir, "b.json"))
	if err := second.Save(doc, password); err != nil {
		t.Fatalf("Save: %v", err)
	}

	a, err := os.ReadFile(first.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	b, err := os.ReadFile(second.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(a) == string(b) {
		t.Error("identical plaintexts produced identical files; salt or nonce is not fresh")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	file := NewSecureFile(filepath.Join(t.TempDir(), "data.json"))

	if err := file.Save(testDoc{}, []byte("pw")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := file.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if file.Exists() {
		t.Error("file still exists after Delete")
	}
	if err := file.Delete(); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
