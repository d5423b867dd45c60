package sample

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIngestHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Ingest(path, 0)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if s.Filename != "hello.bin" {
		t.Errorf("expected filename hello.bin, got %s", s.Filename)
	}
	if s.Size != 5 {
		t.Errorf("expected size 5, got %d", s.Size)
	}
	if s.MD5 != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("unexpected md5 %s", s.MD5)
	}
	if s.SHA1 != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Errorf("unexpected sha1 %s", s.SHA1)
	}
	if s.SHA256 != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected sha256 %s", s.SHA256)
	}
}

func TestIngestRejections(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	big := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(big, make([]byte, 64), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		maxSize int64
		kind    InputErrorKind
	}{
		{"missing", filepath.Join(dir, "nope.bin"), 0, KindNotFound},
		{"empty", empty, 0, KindEmpty},
		{"oversized", big, 32, KindOversized},
		{"directory", dir, 0, KindUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Ingest(tt.path, tt.maxSize)
			ie, ok := IsInputError(err)
			if !ok {
				t.Fatalf("expected InputError, got %v", err)
			}
			if ie.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, ie.Kind)
			}
			if ie.Hint == "" {
				t.Errorf("expected a remediation hint")
			}
		})
	}
}

func TestFromBytesEmpty(t *testing.T) {
	if _, err := FromBytes("x", nil, 0); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}
