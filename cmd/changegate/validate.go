package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/presenter"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the gate configuration",
	Long: `Load the configuration and compile every glob pattern. Malformed
patterns are a configuration error caught here, fast, before any gate
evaluation. All problems are reported at once.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "Configuration is invalid")
			os.Exit(1)
		}

		presenter.Section("Code Paths")
		for _, p := range cfg.Gate.CodePaths {
			presenter.Info(fmt.Sprintf("  %s", p))
		}

		if len(cfg.Gate.Checks) > 0 {
			presenter.Section("Checks Reported On Skip")
			for _, c := range cfg.Gate.Checks {
				presenter.Info(fmt.Sprintf("  %s", c))
			}
		}

		if cfg.Gate.Workflow != "" {
			presenter.Info(fmt.Sprintf("Workflow dispatched on code change: %s", cfg.Gate.Workflow))
		}

		presenter.Success("Configuration is valid")
	},
}
