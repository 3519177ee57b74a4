package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/presenter"
)

const defaultConfigFile = "changegate.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter changegate.yaml",
	Long: `Write a starter configuration file to the current directory. The
code-path patterns in it are placeholders; replace them with the globs
that identify code in your repository.`,
	Run: func(cmd *cobra.Command, _ []string) {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(defaultConfigFile); err == nil && !force {
			presenter.Error(errors.Errorf("%s already exists (use --force to overwrite)", defaultConfigFile), "")
			os.Exit(1)
		}

		out, err := config.MarshalYAML(config.Starter())
		if err != nil {
			presenter.Error(err, "Failed to render configuration")
			os.Exit(1)
		}

		if err := os.WriteFile(defaultConfigFile, out, 0o644); err != nil {
			presenter.Error(err, "Failed to write configuration")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Wrote %s", defaultConfigFile))
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}
