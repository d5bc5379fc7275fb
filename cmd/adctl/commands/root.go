package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"adserver/pkg/config"
	redisdb "adserver/pkg/database/redis"
	"adserver/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	client *goredis.Client
)

var rootCmd = &cobra.Command{
	Use:           "adctl",
	Short:         "Operate the ad server's experiment configuration",
	Long:          `Inspect and edit the Redis-backed experiment configuration read by the ad server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(cfg.App.Environment, cfg.App.LogLevel)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if client != nil {
			_ = redisdb.Close(client)
			client = nil
		}
	},
}

func init() {
	rootCmd.AddCommand(newCellCmd())
	rootCmd.AddCommand(newExpCmd())
	rootCmd.AddCommand(newScoresCmd())
	rootCmd.AddCommand(newBaseCmd())
	rootCmd.AddCommand(newAdIDsCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newTokenCmd())
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect opens the Redis connection on first use.
func connect() (*goredis.Client, error) {
	if client != nil {
		return client, nil
	}
	c, err := redisdb.Connect(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	client = c
	return client, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
