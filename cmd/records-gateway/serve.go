// ABOUTME: serve command: prints the startup banner and runs the gateway until interrupted
// ABOUTME: Shutdown is triggered by SIGINT/SIGTERM through the command context

package main

import (
	"fmt"

	"github.com/campusworks/records-gateway/internal/gateway"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cyan := color.New(color.FgCyan)
			gray := color.New(color.FgHiBlack)
			cyan.Print(banner)
			gray.Printf("    version: %s\n\n", version)

			cfg, configPath, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			green := color.New(color.FgGreen)
			yellow := color.New(color.FgYellow)

			green.Print("    ▶ ")
			fmt.Printf("Config:    %s\n", configPath)
			green.Print("    ▶ ")
			fmt.Printf("Database:  %s\n", cfg.Database.Driver)
			if cfg.Tailscale.Enabled {
				green.Print("    ▶ ")
				fmt.Printf("Tailscale: ")
				cyan.Print(cfg.Tailscale.Hostname)
				if cfg.Tailscale.Funnel {
					yellow.Print(" [funnel]")
				}
				if cfg.Tailscale.Ephemeral {
					gray.Print(" (ephemeral)")
				}
				fmt.Println()
			} else {
				green.Print("    ▶ ")
				fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
				if cfg.Server.GRPCAddr != "" {
					green.Print("    ▶ ")
					fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
				}
			}
			fmt.Println()

			logger.Info("starting records-gateway",
				"config", configPath,
				"http_addr", cfg.Server.HTTPAddr,
				"grpc_addr", cfg.Server.GRPCAddr,
			)

			gw, err := gateway.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}
			return gw.Run(cmd.Context())
		},
	}
}
