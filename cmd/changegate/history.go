package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/history"
	"github.com/jingkaihe/changegate/pkg/presenter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent gate decisions",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "Failed to load configuration")
			os.Exit(1)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")

		store, err := history.NewStore(ctx, cfg.History.Path)
		if err != nil {
			presenter.Error(err, "Failed to open history store")
			os.Exit(1)
		}
		defer store.Close()

		decisions, err := store.List(ctx, limit)
		if err != nil {
			presenter.Error(err, "Failed to list decisions")
			os.Exit(1)
		}

		if jsonOut {
			out, err := json.MarshalIndent(decisions, "", "  ")
			if err != nil {
				presenter.Error(err, "Failed to encode decisions")
				os.Exit(1)
			}
			fmt.Println(string(out))
			return
		}

		if len(decisions) == 0 {
			presenter.Info("No recorded decisions")
			return
		}

		presenter.Section("Gate Decisions")
		for _, d := range decisions {
			verdict := "no code changed"
			if d.CodeChanged {
				verdict = fmt.Sprintf("code changed (%s)", d.MatchedPath)
			}
			presenter.Info(fmt.Sprintf("%s  %s...%s  %d files  %s  [%s]",
				d.CreatedAt.Format(time.RFC3339), d.Base, d.Head, d.FilesChanged, verdict, d.Action))
		}
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of decisions to list")
	historyCmd.Flags().Bool("json", false, "Print decisions as JSON")
}
