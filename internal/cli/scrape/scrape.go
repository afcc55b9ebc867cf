package scrape

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/desk"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/scraper"
)

// ScrapeCmd imports the class timetable from the academic portal.
type ScrapeCmd struct {
	Out      string `short:"o" help:"Write the import document to this file."`
	Import   bool   `help:"Merge the scraped events into the calendar."`
	Months   int    `short:"m" help:"Number of months to fetch (overrides config)."`
	Schedule string `help:"Repeat on this cron schedule until interrupted (\"default\" uses the configured one)."`
}

func (c *ScrapeCmd) Validate() error {
	if c.Out == "" && !c.Import {
		return fmt.Errorf("nothing to do: pass --out FILE and/or --import")
	}
	if c.Schedule != "" && c.Import {
		return fmt.Errorf("--schedule writes --out only; repeated --import would duplicate events")
	}
	if c.Schedule != "" && c.Schedule != "default" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}

func (c *ScrapeCmd) Run(ctx *cli.Context) error {
	if c.Schedule == "" {
		return c.once(context.Background(), ctx)
	}

	schedule := c.Schedule
	if schedule == "default" {
		schedule = ctx.Config.Scraper.Schedule
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := cron.New()
	if _, err := sched.AddFunc(schedule, func() {
		if err := c.once(sigCtx, ctx); err != nil {
			logger.Error("Scheduled scrape failed", "error", err)
			ctx.Printf("❌ %v\n", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	ctx.Printf("Scraping on schedule %q, press Ctrl+C to stop.\n", schedule)
	sched.Start()
	<-sigCtx.Done()
	<-sched.Stop().Done()
	ctx.Println("Stopped.")
	return nil
}

func (c *ScrapeCmd) once(bg context.Context, ctx *cli.Context) error {
	sc := ctx.Config.Scraper
	creds, err := scraper.LoadCredentials(sc.Username, filepath.Join(ctx.ConfigDir(), constants.CredentialsFile))
	if err != nil {
		return err
	}
	months := sc.Months
	if c.Months > 0 {
		months = c.Months
	}

	s, err := scraper.New(scraper.Options{
		BaseURL:     sc.BaseURL,
		Credentials: creds,
		Months:      months,
		Timeout:     ctx.Config.ScrapeTimeout(),
	})
	if err != nil {
		return err
	}

	res, err := s.Scrape(bg)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	for _, w := range res.Warnings {
		ctx.Printf("⚠ %s\n", w)
	}

	data, err := scraper.MarshalImport(res.Events, sc.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	if c.Out != "" {
		if err := os.WriteFile(c.Out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.Out, err)
		}
		ctx.Printf("✓ Wrote %d events to %s\n", len(res.Events), c.Out)
	}
	if c.Import {
		if _, err := ctx.Desk.Import(bg, data, desk.ModeMerge); err != nil {
			return fmt.Errorf("failed to import scraped events: %w", err)
		}
		ctx.Printf("✓ Merged %d scraped events\n", len(res.Events))
	}
	return nil
}
