package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"threadsdl/pkg/classifier"
	"threadsdl/pkg/config"
	"threadsdl/pkg/ui"
)

const defaultConfigPath = ".threadsdl.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage threadsdl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (THREADSDL_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration with every available option.

The file is created in the current directory as '.threadsdl.yaml' unless a
different path is given with --config. Existing files are never replaced.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it.

This command checks:
  - YAML syntax
  - Value ranges (concurrency, timeouts, scroll limits)
  - Low-resolution patterns compile
  - Log level`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		err := fmt.Errorf("%s already exists", path)
		ui.PrintError("Refusing to overwrite configuration", err.Error())
		return reported(err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return reported(err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Adjust scroll, download and output settings as needed")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'threadsdl config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Archive a profile with 'threadsdl <profile-url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return reported(err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return reported(err)
	}

	ui.PrintHighlight("Current Configuration")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables (THREADSDL_*)")
	if configFile != "" {
		fmt.Fprintf(out, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "3. Configuration file: (searched in default locations)")
	}
	fmt.Fprintln(out, "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return reported(err)
	}

	c, err := classifier.New(cfg.Filter.LowResPatterns)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return reported(err)
	}

	if cfg.Output.IncludeManifest && !cfg.Output.OverwriteExisting {
		ui.PrintWarning("Configuration warning", "existing archives will not be replaced")
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Output directory: %s\n", cfg.Output.Directory)
	fmt.Fprintf(out, "  Browser: headless=%t static=%t\n", cfg.Browser.Headless, cfg.Browser.Static)
	fmt.Fprintf(out, "  Scrolling: up to %d iterations, %s apart\n", cfg.Scroll.MaxIterations, cfg.Scroll.SettleInterval)
	fmt.Fprintf(out, "  Concurrent downloads: %d\n", cfg.Download.Concurrency)
	fmt.Fprintf(out, "  Low-res patterns: %s\n", strings.Join(c.Patterns(), ", "))
	fmt.Fprintf(out, "  Compression level: %d\n", cfg.Output.CompressionLevel)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
