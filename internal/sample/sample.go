package sample

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMaxSize bounds the bytes read for a single analysis.
const DefaultMaxSize int64 = 100 * 1024 * 1024

// Sample is an ingested binary together with its identity hashes.
// Treat it as read-only once returned.
type Sample struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size"`
	MD5      string `json:"md5"`
	SHA1     string `json:"sha1"`
	SHA256   string `json:"sha256"`

	data []byte
}

// Bytes returns the raw content. Callers must not modify the returned slice.
func (s *Sample) Bytes() []byte { return s.data }

// Ingest reads the file at path, enforcing maxSize before any content is read.
// A non-positive maxSize selects DefaultMaxSize.
func Ingest(path string, maxSize int64) (*Sample, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newInputError(KindNotFound, path, err)
		}
		return nil, newInputError(KindUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, newInputError(KindUnreadable, path, fmt.Errorf("path is a directory"))
	}
	if info.Size() == 0 {
		return nil, newInputError(KindEmpty, path, nil)
	}
	if info.Size() > maxSize {
		return nil, newInputError(KindOversized, path,
			fmt.Errorf("%d bytes exceeds limit of %d", info.Size(), maxSize))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newInputError(KindUnreadable, path, err)
	}
	defer f.Close()

	// The file may have grown since Stat; never read past the limit.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, newInputError(KindUnreadable, path, err)
	}

	s, err := FromBytes(filepath.Base(path), data, maxSize)
	if err != nil {
		if ie, ok := IsInputError(err); ok {
			ie.Path = path
		}
		return nil, err
	}
	s.Path = path
	return s, nil
}

// FromBytes wraps an in-memory buffer as a Sample.
func FromBytes(filename string, data []byte, maxSize int64) (*Sample, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(data) == 0 {
		return nil, newInputError(KindEmpty, filename, nil)
	}
	if int64(len(data)) > maxSize {
		return nil, newInputError(KindOversized, filename,
			fmt.Errorf("%d bytes exceeds limit of %d", len(data), maxSize))
	}

	md5sum := md5.Sum(data)
	sha1sum := sha1.Sum(data)
	sha256sum := sha256.Sum256(data)

	return &Sample{
		Filename: filename,
		Size:     int64(len(data)),
		MD5:      hex.EncodeToString(md5sum[:]),
		SHA1:     hex.EncodeToString(sha1sum[:]),
		SHA256:   hex.EncodeToString(sha256sum[:]),
		data:     data,
	}, nil
}
