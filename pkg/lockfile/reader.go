package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

var ErrMissing = errors.New("missing lockfile")

func Read(ctx context.Context, cfgPath string) (*Lock, error) {
	log := logr.FromContextOrDiscard(ctx)
	lock, err := os.Open(Name(cfgPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissing
		}
		log.Error(err, "failed to open lockfile")
		return nil, err
	}
	defer lock.Close()
	// read the lockfile
	var lockFile Lock
	if err := json.NewDecoder(lock).Decode(&lockFile); err != nil {
		log.Error(err, "failed to read lockfile")
		return nil, err
	}
	return &lockFile, nil
}

func Write(ctx context.Context, cfgPath string, lock *Lock) error {
	log := logr.FromContextOrDiscard(ctx)

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return err
	}
	path := Name(cfgPath)
	log.V(1).Info("writing lockfile", "path", path)
	return os.WriteFile(path, data, 0644)
}

func Name(s string) string {
	return strings.TrimSuffix(s, filepath.Ext(s)) + "-lock.json"
}
