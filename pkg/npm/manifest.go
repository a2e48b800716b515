package npm

import (
	"encoding/json"
	"fmt"
	"path"

	"chainguard.dev/apko/pkg/apk/fs"
)

// ManifestName is the manifest file every package carries at its root.
const ManifestName = "package.json"

// Manifest is the subset of package.json that drives the dependency
// walk.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func readManifest(rootfs fs.FullFS, dir string) (*Manifest, error) {
	data, err := rootfs.ReadFile(path.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}
