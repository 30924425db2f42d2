package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"threadsdl/pkg/config"
	errs "threadsdl/pkg/errors"
	"threadsdl/pkg/logger"
	"threadsdl/pkg/models"
	"threadsdl/pkg/scraper"
	"threadsdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool

	// Run flags
	outputDir      string
	maxScrolls     int
	settle         time.Duration
	concurrency    int
	timeout        time.Duration
	showBrowser    bool
	staticMode     bool
	withManifest   bool
	lowResPatterns []string

	// newConsole provides the prompt input and its output sink
	newConsole = ui.NewConsole
)

// reportedError marks an error the command already showed to the user
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return reportedError{err: err}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "threadsdl [profile-url]",
	Short: "Archive the high-resolution media of a Threads profile",
	Long: `threadsdl opens a profile page in a headless browser, scrolls until no more
posts load, collects every image and video URL on the page, drops the
low-resolution variants and packs the rest into <username>.zip.

When no profile URL is given on the command line you are prompted for one.`,
	Example: `  # Archive a profile into ./alice.zip
  threadsdl https://www.threads.net/@alice

  # Download four files at a time into ./archives
  threadsdl https://www.threads.net/@alice -o ./archives --concurrency 4

  # Parse the served HTML without a browser
  threadsdl https://www.threads.net/@alice --static`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetOutput(cmd.OutOrStdout())
		if noColor {
			ui.SetColor(false)
		}
		// Quiet mode keeps only errors on stderr
		if quiet && !cmd.Flags().Changed("log-level") {
			logLevel = "error"
		}
		if verbose && !cmd.Flags().Changed("log-level") {
			logLevel = "info"
		}
	},
	RunE: runArchive,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var shown reportedError
		if !errors.As(err, &shown) {
			ui.PrintError("Error", err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.threadsdl.yaml or $HOME/.config/threadsdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show per-file details and info logs")

	// Run flags
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory the archive is written to (default: current directory)")
	rootCmd.Flags().IntVar(&maxScrolls, "max-scrolls", 50, "maximum number of scroll iterations")
	rootCmd.Flags().DurationVar(&settle, "settle", 1500*time.Millisecond, "wait after each scroll")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of parallel downloads")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-download timeout")
	rootCmd.Flags().BoolVar(&showBrowser, "show-browser", false, "run the browser with a visible window")
	rootCmd.Flags().BoolVar(&staticMode, "static", false, "parse the served HTML instead of driving a browser")
	rootCmd.Flags().BoolVar(&withManifest, "manifest", false, "add manifest.json to the archive")
	rootCmd.Flags().StringSliceVar(&lowResPatterns, "low-res-pattern", nil, "additional low-resolution URL pattern (repeatable)")

	// Version template
	rootCmd.SetVersionTemplate(`threadsdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// changedFlags collects the run flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}

	set("output", outputDir)
	set("max-scrolls", maxScrolls)
	set("settle", settle)
	set("concurrency", concurrency)
	set("timeout", timeout)
	set("show-browser", showBrowser)
	set("static", staticMode)
	set("manifest", withManifest)
	set("low-res-pattern", lowResPatterns)
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// resolveTarget returns the profile URL from args or asks for one
func resolveTarget(args []string, console *ui.Console) (models.ProfileTarget, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		line, err := console.Prompt("Enter Threads profile URL: ")
		if err != nil {
			return models.ProfileTarget{}, err
		}
		raw = line
	}
	return models.ParseProfileTarget(raw)
}

func runArchive(cmd *cobra.Command, args []string) error {
	if !quiet {
		ui.PrintLogo()
	}

	console := newConsole()
	target, err := resolveTarget(args, console)
	if err != nil {
		console.Printf("%s\n", ui.Red("Invalid profile URL: "+err.Error()))
		if errs.Is(err, errs.ErrorTypeInput) {
			console.Printf("Expected a profile URL such as https://www.threads.net/@username\n")
		}
		return reported(err)
	}

	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return reported(err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		return reported(err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("threadsdl starting")

	opts := []scraper.Option{scraper.WithLogger(log)}
	var display *ui.ProgressDisplay
	if !quiet {
		display = ui.NewProgressDisplay(cmd.OutOrStdout(), target.Username, verbose)
		opts = append(opts, scraper.WithReporter(display))
	}

	s, err := scraper.New(cfg, opts...)
	if err != nil {
		ui.PrintError("Failed to initialize scraper", err.Error())
		return reported(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := s.Run(ctx, target.RawURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted", err.Error())
			return reported(err)
		}
		log.WithError(err).WithField("username", target.Username).Error("Run failed")
		ui.PrintError("Archive failed", err.Error())
		return reported(err)
	}

	log.InfoWithFields("Run finished", map[string]interface{}{
		"status":  string(report.Status),
		"files":   len(report.Files),
		"skipped": len(report.Skipped),
	})

	switch report.Status {
	case scraper.StatusArchived:
		if display != nil {
			display.Complete(report.ArchivePath)
		}
	case scraper.StatusNoMedia:
		ui.PrintWarning("Nothing to archive", "no high-res media found")
	case scraper.StatusNoDownloads:
		ui.PrintWarning("Nothing to archive", fmt.Sprintf("all %d downloads failed", len(report.Skipped)))
	}
	return nil
}
