package tarball

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
)

var ErrPathTraversal = errors.New("entry path escapes destination")

// Extract writes every entry from the stream into dir within the given
// root filesystem, creating parent directories as needed. Entries are
// processed strictly in order and each file is copied to completion
// before the next entry is read.
//
// Entry paths are untrusted even though the iterator already stripped
// the archive root: anything absolute or climbing out of dir is
// rejected.
func Extract(ctx context.Context, entries Entries, rootfs fs.FullFS, dir string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("dir", dir)

	for {
		entry, err := entries.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Error(err, "failed to read entry from archive")
			return err
		}

		clean := path.Clean(entry.Path)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("%w: %q", ErrPathTraversal, entry.Path)
		}
		target := filepath.Join(dir, filepath.FromSlash(clean))

		if entry.Dir {
			log.V(5).Info("creating directory", "target", target)
			if _, err := rootfs.Stat(target); err != nil {
				if err := rootfs.MkdirAll(target, 0755); err != nil {
					log.Error(err, "failed to create directory", "target", target)
					return err
				}
			}
			continue
		}

		log.V(5).Info("creating file", "target", target, "mode", entry.Mode)
		if parent := filepath.Dir(target); parent != "." {
			if err := rootfs.MkdirAll(parent, 0755); err != nil {
				log.Error(err, "failed to create parent directory", "target", target)
				return err
			}
		}
		f, err := rootfs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(entry.Mode))
		if err != nil {
			log.Error(err, "failed to open file", "target", target)
			return err
		}
		if _, err := io.Copy(f, entry.Body); err != nil {
			log.Error(err, "failed to extract file", "target", target)
			_ = f.Close()
			return err
		}
		_ = f.Close()
	}
}
