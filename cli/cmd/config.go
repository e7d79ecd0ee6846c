package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or generate configuration",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := viper.AllSettings()
		maskSensitiveValues(settings)

		switch configFormat {
		case "yaml":
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
		default:
			return fmt.Errorf("unsupported format: %s", configFormat)
		}

		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "\n# loaded from %s\n", used)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := defaultConfigPath()
		if len(args) == 1 {
			target = args[0]
		}

		if _, err := os.Stat(target); err == nil && !configForce {
			return fmt.Errorf("%s already exists. Use --force to overwrite", target)
		}

		sample := map[string]interface{}{
			"pool": map[string]interface{}{
				"store_type":  "filesystem",
				"path":        ".randpool",
				"identity":    "default",
				"memory_lock": false,
				"s3": map[string]interface{}{
					"endpoint": "",
					"bucket":   "",
					"region":   "us-east-1",
					"prefix":   "randpool/",
					"use_ssl":  true,
				},
			},
			"audit": map[string]interface{}{
				"enabled": false,
				"type":    "file",
				"options": map[string]interface{}{
					"file_path":   "audit.log",
					"max_size":    100,
					"max_backups": 5,
				},
			},
		}

		data, err := yaml.Marshal(sample)
		if err != nil {
			return fmt.Errorf("failed to marshal sample config: %w", err)
		}

		if err = os.MkdirAll(filepath.Dir(target), 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err = os.WriteFile(target, data, 0600); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Printf("Configuration written to %s\n", target)
		return nil
	},
}

func defaultConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".randpool.yaml")
}

// isSensitiveConfigKey reports whether a key's value must not be printed.
func isSensitiveConfigKey(key string) bool {
	sensitive := []string{"secret", "passphrase", "password", "key", "token"}
	lower := strings.ToLower(key)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func maskSensitiveValues(config map[string]interface{}) {
	for key, value := range config {
		if isSensitiveConfigKey(key) {
			config[key] = "[REDACTED]"
		} else if nested, ok := value.(map[string]interface{}); ok {
			maskSensitiveValues(nested)
		}
	}
}

func init() {
	configViewCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "output format (yaml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
