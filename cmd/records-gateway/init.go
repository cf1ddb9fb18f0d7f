// ABOUTME: init command: writes a starter config file from interactive prompts
// ABOUTME: Generates a random base64 signing key so the gateway can start immediately

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/campusworks/records-gateway/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// getDataPath returns the records-gateway data directory.
// Priority: XDG_DATA_HOME/records-gateway > ~/.local/share/records-gateway
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "records-gateway")
}

func generateSigningKey() (string, error) {
	key := make([]byte, config.MinSigningKeyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating signing key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func yes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

// fileConfig mirrors the config file layout for writing; durations stay raw strings.
type fileConfig struct {
	Server    config.ServerConfig    `yaml:"server"`
	Tailscale config.TailscaleConfig `yaml:"tailscale"`
	Database  config.DatabaseConfig  `yaml:"database"`
	Auth      config.AuthConfig      `yaml:"auth"`
	Logging   config.LoggingConfig   `yaml:"logging"`
}

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), c.configPath())
		},
	}
}

func runInit(in io.Reader, out io.Writer, defaultConfigPath string) error {
	reader := bufio.NewReader(in)
	ask := func(question, defaultVal string) string { return prompt(reader, out, question, defaultVal) }

	fmt.Fprintln(out, "records-gateway configuration setup")
	fmt.Fprintln(out, "===================================")

	outputFile := ask("Config file path", defaultConfigPath)
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(ask("File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var fc fileConfig

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	fc.Server.HTTPAddr = ask("HTTP address", "localhost:8080")
	fc.Server.GRPCAddr = ask("gRPC address (empty to disable)", "")

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	fc.Database.Driver = ask("Driver (sqlite/postgres)", config.DefaultDatabaseDriver)
	if fc.Database.Driver == "postgres" {
		fc.Database.DSN = ask("PostgreSQL DSN", "postgres://records@localhost/records?sslmode=disable")
	} else {
		fc.Database.Path = ask("SQLite database path", filepath.Join(getDataPath(), "records.db"))
	}

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	fc.Tailscale.Enabled = yes(ask("Enable Tailscale?", "no"))
	if fc.Tailscale.Enabled {
		fc.Tailscale.Hostname = ask("Tailscale hostname", "records-gateway")
		fc.Tailscale.AuthKey = ask("Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		fc.Tailscale.Ephemeral = yes(ask("Ephemeral node?", "no"))
		fc.Tailscale.Funnel = yes(ask("Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Fprintln(out, "\n--- Auth Configuration ---")
	key, err := generateSigningKey()
	if err != nil {
		return err
	}
	fc.Auth.JWTSecret = key
	fc.Auth.TokenTTLRaw = ask("Token lifetime", "3h")
	fc.Auth.CookieName = config.DefaultCookieName

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	fc.Logging.Level = ask("Log level (debug/info/warn/error)", "info")
	fc.Logging.Format = ask("Log format (text/json)", "text")

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	content := "# records-gateway configuration\n# Generated by records-gateway init\n\n" + string(data)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file holds the signing key.
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  records-gateway provision department --code CS --name \"Computer Science\"")
	fmt.Fprintln(out, "  records-gateway serve")
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return defaultVal
	}
	if input == "" {
		return defaultVal
	}
	return input
}
