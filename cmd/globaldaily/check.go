package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/globaldaily/internal/ai"
	"github.com/thinkscotty/globaldaily/internal/feeds"
	"github.com/thinkscotty/globaldaily/internal/models"
)

var flagCheckFeed string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the store, the feed routes and every provider",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagCheckFeed, "feed", "", "feed URL to fetch (default: first configured feed)")
	rootCmd.AddCommand(checkCmd)
}

const checkPrompt = "请只回复：OK"

type pinger interface {
	Ping(ctx context.Context) error
}

type routeChecker interface {
	CheckRoutes(ctx context.Context, feedURL string) []feeds.RouteCheck
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}
	slots, err := buildSlots(cfg)
	if err != nil {
		return err
	}

	feedURL := flagCheckFeed
	if feedURL == "" {
		feedURL = firstFeed(cfg.Categories)
	}

	if failed := checkAll(ctx, os.Stdout, db, fetcher, feedURL, slots); failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func firstFeed(categories []models.Category) string {
	for _, c := range categories {
		if len(c.Feeds) > 0 {
			return c.Feeds[0]
		}
	}
	return ""
}

// checkAll pings the store, requests feedURL over every route and sends one
// short prompt to every provider slot. It returns the number of failures.
func checkAll(ctx context.Context, w io.Writer, store pinger, fetcher routeChecker, feedURL string, slots []ai.Slot) int {
	failed := 0
	report := func(name string, elapsed time.Duration, err error) {
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %-24s %s\n", name, err)
			return
		}
		fmt.Fprintf(w, "ok    %-24s %s\n", name, elapsed.Round(time.Millisecond))
	}

	start := time.Now()
	report("store", time.Since(start), store.Ping(ctx))

	if feedURL == "" {
		fmt.Fprintln(w, "skip  feed routes             no feed configured")
	} else {
		for _, rc := range fetcher.CheckRoutes(ctx, feedURL) {
			report("feed via "+rc.Route, rc.Elapsed, rc.Err)
		}
	}

	for _, slot := range slots {
		elapsed, err := checkProvider(ctx, slot)
		report("provider "+slot.Provider.Name(), elapsed, err)
	}
	return failed
}

func checkProvider(ctx context.Context, slot ai.Slot) (time.Duration, error) {
	if slot.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, slot.Timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := slot.Provider.Chat(ctx, ai.ChatRequest{
		Messages:  []ai.Message{{Role: "user", Content: checkPrompt}},
		MaxTokens: 16,
	})
	if err != nil {
		return time.Since(start), err
	}
	if resp == nil || resp.Content == "" {
		return time.Since(start), ai.ErrEmptyResponse
	}
	return time.Since(start), nil
}
