package cmd

import (
	"github.com/djcass44/npm-get/pkg/airutil"
	"github.com/djcass44/npm-get/pkg/lockfile"
	"github.com/djcass44/npm-get/pkg/npm"
	"github.com/djcass44/npm-get/pkg/registry"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "generate a lockfile",
	RunE:  lock,
}

func init() {
	lockCmd.Flags().StringP(flagConfig, "c", "", "path to a package configuration file")

	_ = lockCmd.MarkFlagRequired(flagConfig)
	_ = lockCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
}

func lock(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)

	// read the config file
	cfg, err := readConfig(configPath)
	if err != nil {
		return err
	}

	keeper := npm.NewPackageKeeper(registry.NewClient(airutil.ExpandEnv(cfg.Spec.Registry)), nil)

	out := &lockfile.Lock{
		Name:            cfg.Name,
		LockfileVersion: 1,
		Packages:        map[string]lockfile.Package{},
	}
	for _, pkg := range cfg.Spec.Packages {
		version := pkg.Version
		if version == "" {
			version = "latest"
		}
		entry, err := keeper.Lock(cmd.Context(), pkg.Name, version)
		if err != nil {
			return err
		}
		log.V(1).Info("locked package", "name", pkg.Name, "version", entry.Version)
		out.Packages[pkg.Name] = entry
	}

	return lockfile.Write(cmd.Context(), configPath, out)
}
