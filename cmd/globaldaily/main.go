package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/globaldaily/internal/database"
	"github.com/thinkscotty/globaldaily/internal/pipeline"
	"github.com/thinkscotty/globaldaily/internal/server"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig     string
	flagCategories []string
	flagServe      bool
	flagDate       string
)

var rootCmd = &cobra.Command{
	Use:           "globaldaily",
	Short:         "Daily news digest generator",
	Long:          "globaldaily gathers RSS material per category, has a language model write the day's cards, and stores one bundle per category per day.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline once",
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily pipeline on the configured cron schedule",
	RunE:  runSchedule,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored bundles over the JSON API",
	RunE:  runServe,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print stored bundles for a date",
	RunE:  runShow,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("globaldaily %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to configuration file")

	runCmd.Flags().StringSliceVar(&flagCategories, "category", nil, "only run these category keys (repeatable)")
	scheduleCmd.Flags().BoolVar(&flagServe, "serve", false, "also serve the JSON API")
	showCmd.Flags().StringVar(&flagDate, "date", "", "date to show (YYYY-MM-DD, default latest)")

	rootCmd.AddCommand(runCmd, scheduleCmd, serveCmd, showCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sum := a.pipeline.Run(ctx, flagCategories...)
	printSummary(sum)
	if len(sum.Categories) > 0 && sum.Count(pipeline.StatusFailed) == len(sum.Categories) {
		return errors.New("every category failed")
	}
	return nil
}

func printSummary(sum pipeline.Summary) {
	fmt.Printf("Run %s for %s\n", sum.RunID, sum.Date)
	for _, c := range sum.Categories {
		line := fmt.Sprintf("  %-20s %-8s materials=%d cards=%d dropped=%d", c.Category, c.Status, c.Materials, c.Cards, c.Dropped)
		if c.Provider != "" {
			line += " provider=" + c.Provider
		}
		if c.Err != nil {
			line += " error=" + c.Err.Error()
		}
		fmt.Println(line)
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("Starting globaldaily scheduler", "version", version)
	sched := a.scheduler()
	if err := sched.Start(ctx, cfg.Schedule.Cron); err != nil {
		return err
	}
	defer sched.Stop()
	slog.Info("Next run scheduled", "at", sched.Next().In(cfg.Location()).Format(time.DateTime))

	if !flagServe {
		<-ctx.Done()
		return nil
	}
	srv := server.New(cfg.Server, a.db, cfg.Categories, cfg.Location(), version)
	return serveUntilDone(ctx, srv)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(cfg.Server, db, cfg.Categories, cfg.Location(), version)
	return serveUntilDone(ctx, srv)
}

func serveUntilDone(ctx context.Context, srv *server.Server) error {
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	date := flagDate
	if date == "" {
		if date, err = db.LatestDate(ctx); errors.Is(err, database.ErrNotFound) {
			fmt.Println("No bundles stored yet.")
			return nil
		} else if err != nil {
			return err
		}
	}

	bundles, err := db.ListBundles(ctx, date)
	if err != nil {
		return err
	}
	fmt.Printf("全球日报 %s\n", date)
	for _, b := range bundles {
		fmt.Printf("\n[%s · %s] via %s\n", b.Section, b.Name, b.Provider)
		if b.SummaryText != "" {
			fmt.Printf("%s\n", b.SummaryText)
		}
		for i, c := range b.Cards {
			fmt.Printf("%d. %s\n   %s\n", i+1, c.Title, c.Content)
			if c.SourceURL != "" {
				fmt.Printf("   %s\n", c.SourceURL)
			}
		}
	}

	if q, err := db.GetQuote(ctx, date); err == nil {
		fmt.Printf("\n每日一句: %s", q.Content)
		if q.Author != "" {
			fmt.Printf(" (%s)", q.Author)
		}
		fmt.Println()
	}
	return nil
}
