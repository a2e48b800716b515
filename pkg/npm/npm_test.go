package npm

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/npm-get/pkg/downloader"
	"github.com/djcass44/npm-get/pkg/registry"
	"github.com/djcass44/npm-get/pkg/tarball"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPackage struct {
	name    string
	version string
	deps    map[string]string
	devDeps map[string]string
}

func (p testPackage) key() string {
	return fmt.Sprintf("%s@%s", p.name, p.version)
}

// makeTarball builds a registry-shaped tarball: a single "package"
// wrapper directory containing the manifest and an index file.
func makeTarball(t *testing.T, pkg testPackage) []byte {
	manifest, err := json.Marshal(Manifest{
		Name:            pkg.name,
		Version:         pkg.version,
		Dependencies:    pkg.deps,
		DevDependencies: pkg.devDeps,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := map[string]string{
		"package/package.json": string(manifest),
		"package/index.js":     fmt.Sprintf("// %s", pkg.name),
	}
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// testKeeper spins up a fake registry serving the given packages and
// returns a keeper wired against it.
func testKeeper(t *testing.T, packages []testPackage, badShasums map[string]bool) *PackageKeeper {
	tarballs := map[string][]byte{}
	for _, pkg := range packages {
		tarballs[pkg.key()] = makeTarball(t, pkg)
	}

	var srv *httptest.Server
	version := func(pkg testPackage) registry.PackageVersion {
		sum := sha1.Sum(tarballs[pkg.key()])
		shasum := hex.EncodeToString(sum[:])
		if badShasums[pkg.key()] {
			shasum = "0000000000000000000000000000000000000000"
		}
		return registry.PackageVersion{
			Name:            pkg.name,
			Version:         pkg.version,
			Dependencies:    pkg.deps,
			DevDependencies: pkg.devDeps,
			Dist: registry.Dist{
				Tarball: fmt.Sprintf("%s/tarballs/%s.tgz", srv.URL, pkg.key()),
				Shasum:  shasum,
			},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tarballs/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/tarballs/") : len(r.URL.Path)-len(".tgz")]
		data, ok := tarballs[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.URL.Path[1:], "/", 2)
		name := parts[0]
		if len(parts) == 2 {
			for _, pkg := range packages {
				if pkg.name == name && pkg.version == parts[1] {
					_ = json.NewEncoder(w).Encode(version(pkg))
					return
				}
			}
			http.NotFound(w, r)
			return
		}
		packument := registry.Packument{
			Name:     name,
			Versions: map[string]registry.PackageVersion{},
		}
		for _, pkg := range packages {
			if pkg.name == name {
				packument.Versions[pkg.version] = version(pkg)
			}
		}
		if len(packument.Versions) == 0 {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(packument)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dl, err := downloader.NewDownloader(t.TempDir())
	require.NoError(t, err)
	return NewPackageKeeper(registry.NewClient(srv.URL), dl)
}

func testContext(t *testing.T) context.Context {
	return logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
}

func TestPackageKeeper_Download(t *testing.T) {
	ctx := testContext(t)
	packages := []testPackage{
		{name: "app", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}, devDeps: map[string]string{"tool": "1.0.0"}},
		{name: "lib", version: "1.0.0"},
		{name: "lib", version: "1.2.0", devDeps: map[string]string{"never": "1.0.0"}},
		{name: "tool", version: "1.0.0"},
	}

	t.Run("no dependency walk by default", func(t *testing.T) {
		keeper := testKeeper(t, packages, nil)
		rootfs := fs.NewMemFS()

		installed, err := keeper.Download(ctx, "app", "1.0.0", rootfs, "", DownloadOptions{})
		require.NoError(t, err)
		require.Len(t, installed, 1)
		assert.True(t, installed[0].Direct)

		_, err = rootfs.Stat("index.js")
		assert.NoError(t, err)
		_, err = rootfs.Stat(NodeModulesDir)
		assert.Error(t, err)
	})
	t.Run("dependencies are installed recursively", func(t *testing.T) {
		keeper := testKeeper(t, packages, nil)
		rootfs := fs.NewMemFS()

		installed, err := keeper.Download(ctx, "app", "1.0.0", rootfs, "", DownloadOptions{Dependencies: true})
		require.NoError(t, err)
		assert.Len(t, installed, 2)

		// the range ^1.0.0 must pick the highest matching version
		manifest, err := rootfs.ReadFile("node_modules/lib/package.json")
		require.NoError(t, err)
		var m Manifest
		require.NoError(t, json.Unmarshal(manifest, &m))
		assert.EqualValues(t, "1.2.0", m.Version)

		// dev dependencies of a dependency are never installed
		_, err = rootfs.Stat("node_modules/lib/node_modules/never")
		assert.Error(t, err)
		// and neither are the top-level ones unless asked for
		_, err = rootfs.Stat("node_modules/tool")
		assert.Error(t, err)
	})
	t.Run("dev dependencies only at the top level", func(t *testing.T) {
		keeper := testKeeper(t, packages, nil)
		rootfs := fs.NewMemFS()

		installed, err := keeper.Download(ctx, "app", "1.0.0", rootfs, "", DownloadOptions{Dependencies: true, DevDependencies: true})
		require.NoError(t, err)
		assert.Len(t, installed, 3)

		_, err = rootfs.Stat("node_modules/tool/index.js")
		assert.NoError(t, err)
		_, err = rootfs.Stat("node_modules/lib/node_modules/never")
		assert.Error(t, err)
	})
	t.Run("checksum mismatch aborts before extraction", func(t *testing.T) {
		keeper := testKeeper(t, packages, map[string]bool{"app@1.0.0": true})
		rootfs := fs.NewMemFS()

		_, err := keeper.Download(ctx, "app", "1.0.0", rootfs, "", DownloadOptions{})
		assert.ErrorIs(t, err, tarball.ErrIntegrity)

		_, err = rootfs.Stat("index.js")
		assert.Error(t, err)
	})
	t.Run("dependency checksum mismatch aborts the walk", func(t *testing.T) {
		keeper := testKeeper(t, packages, map[string]bool{"lib@1.2.0": true})
		rootfs := fs.NewMemFS()

		_, err := keeper.Download(ctx, "app", "1.0.0", rootfs, "", DownloadOptions{Dependencies: true})
		assert.ErrorIs(t, err, tarball.ErrIntegrity)
	})
	t.Run("unknown package fails", func(t *testing.T) {
		keeper := testKeeper(t, packages, nil)

		_, err := keeper.Download(ctx, "ghost", "1.0.0", fs.NewMemFS(), "", DownloadOptions{})
		assert.ErrorIs(t, err, registry.ErrNotFound)
	})
}

func TestPackageKeeper_Lock(t *testing.T) {
	ctx := testContext(t)
	keeper := testKeeper(t, []testPackage{
		{name: "lib", version: "1.0.0"},
		{name: "lib", version: "1.2.0"},
	}, nil)

	entry, err := keeper.Lock(ctx, "lib", "^1.0.0")
	require.NoError(t, err)
	assert.EqualValues(t, "lib", entry.Name)
	assert.EqualValues(t, "1.2.0", entry.Version)
	assert.True(t, entry.Direct)
	assert.Contains(t, entry.Integrity, "sha1-")
	assert.Contains(t, entry.Resolved, "lib@1.2.0.tgz")
}

func TestReadManifest(t *testing.T) {
	rootfs := fs.NewMemFS()

	t.Run("missing manifest fails", func(t *testing.T) {
		_, err := readManifest(rootfs, "")
		assert.Error(t, err)
	})
	t.Run("malformed manifest fails", func(t *testing.T) {
		require.NoError(t, rootfs.WriteFile(ManifestName, []byte("not json"), 0644))
		_, err := readManifest(rootfs, "")
		assert.Error(t, err)
	})
	t.Run("dependency maps are read", func(t *testing.T) {
		require.NoError(t, rootfs.MkdirAll("pkg", 0755))
		require.NoError(t, rootfs.WriteFile("pkg/package.json", []byte(`{"name":"a","version":"1.0.0","dependencies":{"b":"^1.0.0"}}`), 0644))
		manifest, err := readManifest(rootfs, "pkg")
		require.NoError(t, err)
		assert.EqualValues(t, map[string]string{"b": "^1.0.0"}, manifest.Dependencies)
	})
}
