package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"companion/internal/agenda"
	"companion/internal/capture"
	"companion/internal/config"
	"companion/internal/digest"
	"companion/internal/email"
	"companion/internal/ics"
	appLog "companion/internal/log"
	"companion/internal/market"
	"companion/internal/news"
	"companion/internal/report"
	"companion/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	dryRun     bool
	noEmail    bool
}

func main() {
	appLog.Info("companion starting", "version", "0.1.0")

	flags := parseFlags()
	appLog.SetLevel(appLog.ParseLevel(flags.logLevel))

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.noEmail {
		conf.Email.Enabled = false
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"feed_url", conf.FeedURL != "",
		"tickers", strings.Join(conf.Tickers, ","),
		"email_enabled", conf.Email.Enabled,
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := runPipeline(ctx, conf, flags.dryRun); err != nil {
			appLog.Error("pipeline failed", err)
			os.Exit(1)
		}
		appLog.Info("companion exiting")
		return
	}

	// Daemon mode: cron-driven refresh plus the report web server.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := runPipeline(ctx, conf, flags.dryRun); err != nil {
			appLog.Error("scheduled pipeline failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// Run once at startup so the web endpoints have content immediately.
	go func() {
		if err := runPipeline(ctx, conf, flags.dryRun); err != nil {
			appLog.Error("initial pipeline failed", err)
		}
	}()

	go func() {
		if err := web.StartServer(ctx, conf); err != nil {
			appLog.Error("web server stopped", err)
			cancel()
		}
	}()

	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)
	appLog.Info("companion exiting")
}

// runPipeline executes one full report cycle: agenda, news, markets,
// render, snapshot, study ICS, digest, email. Failures in the calendar
// feed degrade to an empty agenda section; failures in later stages are
// logged and the cycle continues with what it has.
func runPipeline(ctx context.Context, conf *config.Config, dryRun bool) error {
	started := time.Now()

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	day := agenda.Today(now, loc)

	window, err := agenda.NewWindow(day, conf.WorkdayStartHour, conf.WorkdayEndHour)
	if err != nil {
		return err
	}

	// Agenda. A broken feed must not take the whole report down.
	var events []agenda.Event
	if conf.FeedURL != "" {
		fetcher := ics.NewFetcher(conf.CacheDir)
		res, err := fetcher.Fetch(ctx, conf.FeedURL)
		if err != nil {
			appLog.Error("calendar fetch failed, rendering empty agenda", err)
		} else {
			raw, err := ics.ParseEvents(res.Body)
			if err != nil {
				appLog.Error("calendar parse failed, rendering empty agenda", err)
			} else {
				events = agenda.Normalize(raw, day, loc)
			}
		}
	}

	slots, err := agenda.FreeSlots(events, window, conf.MinBlockMinutes)
	if err != nil {
		return err
	}
	appLog.Info("agenda computed", "events", len(events), "slots", len(slots))

	// News and markets run on whatever the network gives us.
	items := news.NewAggregator(conf.News).Fetch(ctx)
	prices := market.NewClient(conf.PriceWindowDays).FetchAll(ctx, conf.Tickers)
	stats := market.AllStats(prices, conf.PriceWindowDays)

	// Render the report.
	data := report.Build(events, slots, items, prices, stats, conf.PriceWindowDays, now, conf.Timezone)
	if err := report.Write(conf.ReportPath, data); err != nil {
		return err
	}

	if dryRun {
		appLog.Info("dry run, skipping snapshot/ics/email", "elapsed", time.Since(started).String())
		return nil
	}

	// PNG snapshot of the rendered report.
	snapshotOK := false
	if fileURL, err := capture.FileURL(conf.ReportPath); err != nil {
		appLog.Error("snapshot skipped", err)
	} else if err := capture.SnapshotPNG(ctx, capture.Options{
		URL:        fileURL,
		OutputPath: conf.SnapshotPath,
	}); err != nil {
		appLog.Error("snapshot failed", err)
	} else {
		snapshotOK = true
	}

	// Study-block calendar.
	icsPath, err := ics.WriteStudyBlocks(slots, conf.StudyICSPath)
	if err != nil {
		appLog.Error("study ICS write failed", err)
		icsPath = ""
	}

	// Digest and delivery.
	if conf.Email.Enabled {
		icsURL := ""
		if icsPath != "" && conf.ReportPublicURL != "" {
			icsURL = strings.TrimRight(conf.ReportPublicURL, "/") + "/study.ics"
		}
		body := digest.NewBuilder(conf.Digest).Build(ctx, items, stats, conf.ReportPublicURL, icsURL)

		attachments := []email.Attachment{
			{Path: conf.ReportPath, ContentType: "text/html"},
		}
		if snapshotOK {
			attachments = append(attachments, email.Attachment{Path: conf.SnapshotPath, ContentType: "image/png"})
		}
		if icsPath != "" {
			attachments = append(attachments, email.Attachment{Path: icsPath, ContentType: "text/calendar"})
		}

		subject := "Daily report " + now.Format("2006-01-02")
		if err := email.NewSender(conf.Email).Send(subject, body, attachments); err != nil {
			appLog.Error("email delivery failed", err)
		}
	}

	appLog.Info("pipeline done", "elapsed", time.Since(started).String())
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level (debug, info, error)")
	flag.BoolVar(&cfg.once, "once", false, "Run one report cycle and exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Render the report but skip snapshot, ICS and email")
	flag.BoolVar(&cfg.noEmail, "no-email", false, "Disable email delivery for this run")

	flag.Parse()

	return cfg
}
