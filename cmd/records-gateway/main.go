// ABOUTME: Entry point for records-gateway, the academic records authentication gateway
// ABOUTME: Builds the cobra command tree and runs it under a signal-aware context

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusworks/records-gateway/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var version = "dev"

const banner = `
                              _                     _
 _ __ ___  ___ ___  _ __ __| |___   __ _  __ _| |_ _____      ____ _ _   _
| '__/ _ \/ __/ _ \| '__/ _' / __| / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| | |  __/ (_| (_) | | | (_| \__ \| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|_|  \___|\___\___/|_|  \__,_|___/ \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                                   |___/                             |___/
`

// cli carries state shared by every command.
type cli struct {
	configFlag string
}

func (c *cli) configPath() string {
	return config.ResolvePath(c.configFlag)
}

func (c *cli) loadConfig() (*config.Config, string, error) {
	path := c.configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "records-gateway",
		Short: "Authentication gateway for the academic records app",
		Long: `records-gateway serves the academic records web app and JSON API behind a
token-based authentication gate and a path/role access policy.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFlag, "config", "", "config file (env: RECORDS_CONFIG)")

	root.AddCommand(
		newServeCmd(c),
		newProvisionCmd(c),
		newHealthCmd(c),
		newInitCmd(c),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
