package cmd

import (
	"os"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/npm-get/cmd/cache"
	"github.com/djcass44/npm-get/pkg/airutil"
	"github.com/djcass44/npm-get/pkg/downloader"
	"github.com/djcass44/npm-get/pkg/npm"
	"github.com/djcass44/npm-get/pkg/registry"
	"github.com/go-logr/logr"
	"github.com/gosimple/hashdir"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download package@version",
	Short: "download a package",
	Long: `Download a package and extract it into a directory.

The version may be exact ("1.2.3"), a range ("^1.2.0", "~1.2", "1.x")
or "latest".`,
	Args: cobra.ExactArgs(1),
	RunE: download,
}

const (
	flagOutput   = "output"
	flagRegistry = "registry"
	flagCacheDir = "cache-dir"
	flagDeps     = "deps"
	flagDevDeps  = "dev-deps"
)

func init() {
	downloadCmd.Flags().StringP(flagOutput, "o", ".", "directory to extract the package into")
	downloadCmd.Flags().String(flagRegistry, registry.DefaultURL, "npm registry base url")
	downloadCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")
	downloadCmd.Flags().Bool(flagDeps, false, "also download declared dependencies")
	downloadCmd.Flags().Bool(flagDevDeps, false, "also download declared dev dependencies")

	_ = downloadCmd.MarkFlagDirname(flagOutput)
	_ = downloadCmd.MarkFlagDirname(flagCacheDir)
}

func download(cmd *cobra.Command, args []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	output, _ := cmd.Flags().GetString(flagOutput)
	registryURL, _ := cmd.Flags().GetString(flagRegistry)
	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)
	deps, _ := cmd.Flags().GetBool(flagDeps)
	devDeps, _ := cmd.Flags().GetBool(flagDevDeps)

	name, version, err := npm.SplitNameAndVersion(args[0])
	if err != nil {
		return err
	}

	output = airutil.ExpandEnv(output)
	if err := os.MkdirAll(output, 0755); err != nil {
		return err
	}
	rootfs := fs.DirFS(cmd.Context(), output)

	dl, err := downloader.NewDownloader(cache.Dir(cacheDir))
	if err != nil {
		return err
	}
	keeper := npm.NewPackageKeeper(registry.NewClient(airutil.ExpandEnv(registryURL)), dl)

	installed, err := keeper.Download(cmd.Context(), name, version, rootfs, "", npm.DownloadOptions{
		Dependencies:    deps,
		DevDependencies: devDeps,
	})
	if err != nil {
		return err
	}
	for _, pkg := range installed {
		log.V(1).Info("installed package", "name", pkg.Name, "version", pkg.Version)
	}
	log.Info("downloaded package", "name", name, "dir", output, "count", len(installed))

	if log.V(2).Enabled() {
		sum, err := hashdir.Make(output, "sha256")
		if err == nil {
			log.V(2).Info("materialised content hash", "dir", output, "hash", sum)
		}
	}
	return nil
}
