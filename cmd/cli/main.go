package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/clip-extract-go/internal/app"
	"github.com/yourusername/clip-extract-go/internal/domain"
)

var (
	configPath  string
	gameFlag    string
	limitFlag   int
	showBrowser bool
	serverURL   string
	noAutoStart bool

	rootCmd = &cobra.Command{
		Use:           "clip-extract",
		Short:         "Clip Extract - download recent game clips through a headless browser",
		Long:          `Finds recent clips for the configured games, recovers each clip's signed media URL in a fingerprinted headless browser and downloads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./configs/config.yaml or ~/.clip-extract/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&gameFlag, "game", "g", "", "Only process this game")
	rootCmd.PersistentFlags().IntVarP(&limitFlag, "limit", "l", 0, "Clips per game (default catalog.default_limit)")
	rootCmd.PersistentFlags().BoolVar(&showBrowser, "show-browser", false, "Run the browser with a visible window")

	historyCmd.PersistentFlags().StringVar(&serverURL, "server", "", "History server URL (default from config)")
	historyCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start the history server if not running")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status (processing, completed, skipped, failed)")

	historyCmd.AddCommand(statsCmd)

	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(titleCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(historyCmd)
}

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List supported games",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		fmt.Println("Supported games:")
		for _, game := range config.Catalog.Games {
			fmt.Printf("  - %s\n", game)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent clips and whether they are already downloaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *cliApp) error {
			listings, err := a.runner.ListClips(ctx, gameFlag, limitFlag)
			printListings(os.Stdout, listings)
			return err
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the latest clips for every game (or --game)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *cliApp) error {
			report, err := a.runner.DownloadLatest(ctx, gameFlag, limitFlag)
			printReport(os.Stdout, report)
			return err
		})
	},
}

var titleCmd = &cobra.Command{
	Use:   "title <title>",
	Short: "Download the clip with this exact title (case-insensitive)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		return withApp(func(ctx context.Context, a *cliApp) error {
			report, err := a.runner.DownloadByTitle(ctx, title, gameFlag)
			printReport(os.Stdout, report)
			return err
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Download one random clip to check the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *cliApp) error {
			report, err := a.runner.TestDownload(ctx, gameFlag, limitFlag)
			printReport(os.Stdout, report)
			return err
		})
	},
}

// withApp builds the application, runs fn under a context cancelled by
// SIGINT/SIGTERM and tears everything down afterwards.
func withApp(fn func(context.Context, *cliApp) error) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := app.RequireCredentials(a.config); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		switch {
		case domain.KindOf(err) == domain.KindCancelled:
			fmt.Fprintln(os.Stderr, "Interrupted, browser session closed.")
			os.Exit(130)
		case domain.IsFatal(err):
			fmt.Fprintf(os.Stderr, "Authentication failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Set CLIENT_ID and CLIENT_SECRET in the environment or a .env file.")
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
