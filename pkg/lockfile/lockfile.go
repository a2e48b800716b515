package lockfile

import (
	"fmt"
	"sort"

	v1 "github.com/djcass44/npm-get/pkg/api/v1"
)

// Validate checks that the configuration file lines up
// with what we expect from the lockfile and vice versa
func (l *Lock) Validate(cfg v1.InstallSpec) error {
	// check that the configured packages are all in the lockfile
	for _, p := range cfg.Packages {
		if _, ok := l.Packages[p.Name]; !ok {
			return fmt.Errorf("package not found in lock: %s", p.Name)
		}
	}

	// now we do the reverse. Transitive dependencies only exist in
	// the lockfile, so we only check direct packages.
	for k, v := range l.Packages {
		if k == "" || !v.Direct {
			continue
		}
		var found bool
		for _, p := range cfg.Packages {
			if p.Name == k {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("package found in lock, but not manifest: %s", k)
		}
	}

	return nil
}

// SortedKeys returns package names
// sorted alphabetically.
func (l *Lock) SortedKeys() []string {
	pkgKeys := make([]string, 0)
	for k := range l.Packages {
		pkgKeys = append(pkgKeys, k)
	}
	sort.Strings(pkgKeys)
	return pkgKeys
}
