package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/hashicorp/go-getter"
)

type Downloader struct {
	cacheDir string
}

// NewDownloader creates a downloader that stores fetched tarballs in
// cacheDir. An empty cacheDir falls back to a unique temp directory so
// that parallel invocations cannot trample each other.
func NewDownloader(cacheDir string) (*Downloader, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), fmt.Sprintf("npg-%s", uuid.NewString()))
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Downloader{cacheDir: cacheDir}, nil
}

func (d *Downloader) Download(ctx context.Context, src string) (string, error) {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("downloading file", "src", src)

	uri, err := url.Parse(src)
	if err != nil {
		log.Error(err, "failed to parse url")
		return "", err
	}

	// download to a predictable location so repeated installs skip the
	// fetch. The name is prefixed with a hash of the full url because
	// scoped and unscoped tarballs can share a basename.
	dst := filepath.Join(d.cacheDir, fmt.Sprintf("%s-%s", HashString(src), filepath.Base(uri.Path)))
	log.V(1).Info("preparing to download file", "dst", dst)

	client := &getter.Client{
		Ctx:             ctx,
		Src:             src,
		Dst:             dst,
		Mode:            getter.ClientModeFile,
		DisableSymlinks: true,
	}
	if err := client.Get(); err != nil {
		log.Error(err, "failed to download file")
		return "", err
	}

	return dst, nil
}

// HashString generates a 12-character SHA256 hash
// from a given string.
// It should not be used for cryptographic operations.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:12]
}
