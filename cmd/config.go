package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datacopilot/internal/ai"
	cfgpkg "github.com/KaramelBytes/datacopilot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Data Copilot configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
	fmt.Fprintf(w, "provider: %s\n", c.Provider)
	fmt.Fprintf(w, "base_url: %s\n", c.BaseURL)
	fmt.Fprintf(w, "model: %s\n", c.Model)
	fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	fmt.Fprintf(w, "listen_addr: %s\n", c.ListenAddr)
	fmt.Fprintf(w, "python_bin: %s\n", c.PythonBin)
	if c.HTTPTimeoutSec > 0 {
		fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	} else {
		fmt.Fprintln(w, "http_timeout_sec: 0 (transport default)")
	}
	if c.Provider == ai.ProviderOllama {
		fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applyConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func applyConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch strings.ToLower(val) {
		case ai.ProviderOpenAI:
			c.Provider = ai.ProviderOpenAI
		case ai.ProviderOpenRouter:
			c.Provider = ai.ProviderOpenRouter
		case ai.ProviderOllama, ai.ProviderLocal:
			c.Provider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid provider: %s (use openai, openrouter or ollama)", val)
		}
	case "base_url":
		c.BaseURL = val
	case "model":
		c.Model = val
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_tokens: %v", val)
		}
		c.MaxTokens = i
	case "listen_addr":
		c.ListenAddr = val
	case "python_bin":
		c.PythonBin = val
	case "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
		}
		c.HTTPTimeoutSec = i
	case "ollama_host":
		c.OllamaHost = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
