package cmd

import (
	"errors"
	"os"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/npm-get/cmd/cache"
	"github.com/djcass44/npm-get/pkg/airutil"
	v1 "github.com/djcass44/npm-get/pkg/api/v1"
	"github.com/djcass44/npm-get/pkg/downloader"
	"github.com/djcass44/npm-get/pkg/lockfile"
	"github.com/djcass44/npm-get/pkg/npm"
	"github.com/djcass44/npm-get/pkg/registry"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "install packages from a configuration file",
	RunE:  install,
}

const flagConfig = "config"

func init() {
	installCmd.Flags().StringP(flagConfig, "c", "", "path to a package configuration file")
	installCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")

	_ = installCmd.MarkFlagRequired(flagConfig)
	_ = installCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
	_ = installCmd.MarkFlagDirname(flagCacheDir)
}

func install(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)
	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)

	// read the config file
	cfg, err := readConfig(configPath)
	if err != nil {
		return err
	}

	// if a lockfile was generated for this config, make sure the two
	// still agree before touching the filesystem
	lockFile, err := lockfile.Read(cmd.Context(), configPath)
	if err != nil && !errors.Is(err, lockfile.ErrMissing) {
		return err
	}
	if lockFile != nil {
		if err := lockFile.Validate(cfg.Spec); err != nil {
			return err
		}
		log.V(1).Info("validated lockfile", "packages", len(lockFile.Packages))
	}

	dir := airutil.ExpandEnv(cfg.Spec.Dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	rootfs := fs.DirFS(cmd.Context(), dir)

	dl, err := downloader.NewDownloader(cache.Dir(cacheDir))
	if err != nil {
		return err
	}
	keeper := npm.NewPackageKeeper(registry.NewClient(airutil.ExpandEnv(cfg.Spec.Registry)), dl)

	for _, pkg := range cfg.Spec.Packages {
		version := pkg.Version
		if version == "" {
			version = "latest"
		}
		installed, err := keeper.Download(cmd.Context(), pkg.Name, version, rootfs, pkg.Name, npm.DownloadOptions{
			Dependencies:    cfg.Spec.Dependencies,
			DevDependencies: cfg.Spec.DevDependencies,
		})
		if err != nil {
			return err
		}
		log.Info("installed package", "name", pkg.Name, "count", len(installed))
	}

	return nil
}

func readConfig(s string) (v1.Install, error) {
	f, err := os.Open(s)
	if err != nil {
		return v1.Install{}, err
	}

	var config v1.Install
	if err := yaml.NewYAMLOrJSONDecoder(f, 4).Decode(&config); err != nil {
		return v1.Install{}, err
	}
	return config, nil
}
