package tarball

import (
	"archive/tar"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/gzip"
)

var (
	ErrIntegrity        = errors.New("integrity check failed")
	ErrUnexpectedLayout = errors.New("unexpected archive layout")
)

// Entry is a single file or directory from a package archive. The Body
// stream is only valid until the next call to Next.
type Entry struct {
	Path string
	Mode int64
	Dir  bool
	Body io.Reader
}

// Entries is a single-pass stream of archive entries. Next returns
// io.EOF once the stream is exhausted; any other error is terminal.
type Entries interface {
	Next() (*Entry, error)
	Close() error
}

// Iterator walks the entries of a package tarball in archive order.
// The consumer drives pacing: decompression only advances when Next
// is called.
type Iterator struct {
	f      *os.File
	gz     *gzip.Reader
	tr     *tar.Reader
	prefix string
}

// Open verifies the tarball at path against the expected shasum and
// returns an iterator over its entries. The digest is computed over
// the compressed bytes exactly as they were transmitted, before any
// decompression happens.
func Open(ctx context.Context, path, shasum string) (*Iterator, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	sum, err := Sha1(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(sum, shasum) {
		log.V(1).Info("tarball checksum mismatch", "expected", shasum, "actual", sum)
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIntegrity, shasum, sum)
	}
	log.V(2).Info("verified tarball checksum", "shasum", sum)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Iterator{f: f, gz: gz, tr: tar.NewReader(gz)}, nil
}

// Next returns the next file or directory entry with the archive's
// shared root segment stripped. The root segment is taken from the
// first entry; every later entry must live under it.
func (it *Iterator) Next() (*Entry, error) {
	for {
		header, err := it.tr.Next()
		if err != nil {
			return nil, err
		}
		if header == nil {
			continue
		}
		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		default:
			continue
		}

		name := strings.TrimPrefix(header.Name, "./")
		root, rest, _ := strings.Cut(name, "/")
		root = path.Clean(root)
		if it.prefix == "" {
			it.prefix = root
		}
		if root != it.prefix {
			return nil, fmt.Errorf("%w: entry %q outside root %q", ErrUnexpectedLayout, header.Name, it.prefix)
		}
		if rest == "" {
			// the wrapper directory itself maps to the destination root
			continue
		}

		entry := &Entry{
			Path: rest,
			Mode: header.Mode,
			Dir:  header.Typeflag == tar.TypeDir,
		}
		if !entry.Dir {
			entry.Body = it.tr
		}
		return entry, nil
	}
}

func (it *Iterator) Close() error {
	if err := it.gz.Close(); err != nil {
		_ = it.f.Close()
		return err
	}
	return it.f.Close()
}

// Sha1 computes the hex-encoded SHA-1 digest of the file at path.
// SHA-1 is the digest scheme the registry declares in dist.shasum.
func Sha1(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
