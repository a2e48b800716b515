package npm

import (
	"context"
	"fmt"
	"path"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/npm-get/pkg/api/v1"
	"github.com/djcass44/npm-get/pkg/downloader"
	"github.com/djcass44/npm-get/pkg/lockfile"
	"github.com/djcass44/npm-get/pkg/registry"
	"github.com/djcass44/npm-get/pkg/tarball"
	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
)

// NodeModulesDir is the directory that dependencies are nested under,
// relative to the package that declares them.
const NodeModulesDir = "node_modules"

type DownloadOptions struct {
	// Dependencies recursively installs declared dependencies under
	// node_modules.
	Dependencies bool
	// DevDependencies installs the top-level package's dev
	// dependencies. It never propagates to recursive installs.
	DevDependencies bool
}

type PackageKeeper struct {
	registry *registry.Client
	dl       *downloader.Downloader
}

func NewPackageKeeper(reg *registry.Client, dl *downloader.Downloader) *PackageKeeper {
	return &PackageKeeper{
		registry: reg,
		dl:       dl,
	}
}

// Resolve determines the concrete version matching the given specifier
// and returns the registry metadata record for it.
func (k *PackageKeeper) Resolve(ctx context.Context, name, specifier string) (*registry.PackageVersion, error) {
	return k.registry.Resolve(ctx, name, specifier)
}

// Lock resolves the package and returns the lockfile entry describing
// it, without downloading anything.
func (k *PackageKeeper) Lock(ctx context.Context, name, specifier string) (lockfile.Package, error) {
	pkg, err := k.registry.Resolve(ctx, name, specifier)
	if err != nil {
		return lockfile.Package{}, err
	}
	return lockPackage(pkg, true), nil
}

// Entries fetches the resolved package's tarball into the cache,
// verifies its checksum, and returns an iterator over its contents.
// Each call performs a fresh fetch; the iterator is single-pass.
func (k *PackageKeeper) Entries(ctx context.Context, pkg *registry.PackageVersion) (*tarball.Iterator, error) {
	tarPath, err := k.dl.Download(ctx, pkg.Dist.Tarball)
	if err != nil {
		return nil, fmt.Errorf("retrieving tarball: %w", err)
	}
	return tarball.Open(ctx, tarPath, pkg.Dist.Shasum)
}

// Download resolves, fetches, verifies, and materialises a package
// into dir within the root filesystem, optionally recursing into its
// declared dependencies under dir/node_modules. It returns the
// lockfile entries for everything it installed.
func (k *PackageKeeper) Download(ctx context.Context, name, specifier string, rootfs fs.FullFS, dir string, opts DownloadOptions) ([]lockfile.Package, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", name, "specifier", specifier)

	pkg, err := k.registry.Resolve(ctx, name, specifier)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("resolved package", "version", pkg.Version)

	entries, err := k.Entries(ctx, pkg)
	if err != nil {
		return nil, err
	}
	err = tarball.Extract(ctx, entries, rootfs, dir)
	_ = entries.Close()
	if err != nil {
		return nil, err
	}

	out := []lockfile.Package{lockPackage(pkg, true)}

	if !opts.Dependencies && !opts.DevDependencies {
		return out, nil
	}

	// dependency resolution was explicitly requested, so a missing or
	// unreadable manifest is fatal
	manifest, err := readManifest(rootfs, dir)
	if err != nil {
		return nil, err
	}

	deps := map[string]string{}
	if opts.Dependencies {
		maps.Copy(deps, manifest.Dependencies)
	}
	if opts.DevDependencies {
		maps.Copy(deps, manifest.DevDependencies)
	}
	log.V(2).Info("walking dependencies", "count", len(deps))

	for depName, depSpecifier := range deps {
		sub, err := k.Download(ctx, depName, depSpecifier, rootfs, path.Join(dir, NodeModulesDir, depName), DownloadOptions{
			Dependencies: true,
		})
		if err != nil {
			return nil, err
		}
		for i := range sub {
			sub[i].Direct = false
		}
		out = append(out, sub...)
	}

	return out, nil
}

func lockPackage(pkg *registry.PackageVersion, direct bool) lockfile.Package {
	return lockfile.Package{
		Name:      pkg.Name,
		Type:      v1.PackageNPM,
		Version:   pkg.Version,
		Resolved:  pkg.Dist.Tarball,
		Integrity: fmt.Sprintf("sha1-%s", pkg.Dist.Shasum),
		Direct:    direct,
	}
}
