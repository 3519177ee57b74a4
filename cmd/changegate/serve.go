package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/github"
	"github.com/jingkaihe/changegate/pkg/history"
	"github.com/jingkaihe/changegate/pkg/presenter"
	"github.com/jingkaihe/changegate/pkg/runner"
	"github.com/jingkaihe/changegate/pkg/webhook"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host   string
	Port   int
	Secret string
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host: "localhost",
		Port: 8080,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gate over HTTP",
	Long: `Start an HTTP server exposing the gate: a health endpoint, a direct
evaluation API, and a GitHub pull_request webhook. On each qualifying
pull request event the change set is computed via the compare API and the
gate decision is applied.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		serveConfig := getServeConfigFromFlags(cmd)

		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "Failed to load configuration")
			os.Exit(1)
		}

		client := github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo)

		opts := []runner.Option{
			runner.WithReporter(client),
			runner.WithDispatcher(client),
		}
		if !cfg.History.Disabled {
			store, err := history.NewStore(ctx, cfg.History.Path)
			if err != nil {
				presenter.Warning("History store unavailable, decisions will not be recorded")
			} else {
				defer store.Close()
				opts = append(opts, runner.WithRecorder(store))
			}
		}

		run, err := runner.New(cfg, opts...)
		if err != nil {
			presenter.Error(err, "Failed to initialize gate")
			os.Exit(1)
		}

		server, err := webhook.NewServer(&webhook.ServerConfig{
			Host:          serveConfig.Host,
			Port:          serveConfig.Port,
			WebhookSecret: serveConfig.Secret,
		}, run, client)
		if err != nil {
			presenter.Error(err, "Failed to create server")
			os.Exit(1)
		}

		if err := server.Start(ctx); err != nil {
			presenter.Error(err, "Server failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().String("secret", defaults.Secret, "GitHub webhook secret")

	viper.BindPFlag("serve.secret", serveCmd.Flags().Lookup("secret"))
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	config.Secret = viper.GetString("serve.secret")

	return config
}
