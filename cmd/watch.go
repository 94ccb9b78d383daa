package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/api"
	"github.com/etnz/treasury/discord"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type watchCmd struct {
	http     string
	interval string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "watch the treasury and publish the report on every cycle" }
func (*watchCmd) Usage() string {
	return `tsy watch [-http <addr>] [-every <duration>]

  Reads every account balance, records the changes in the state and edits the
  Discord message, immediately and then on every interval, until interrupted.

  When DISCORD_TOKEN is set, the bot presence and nickname are set at startup.
  When an HTTP address is set, the status and metrics are served on it.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.http, "http", "", "Address of the status server (env TREASURY_HTTP_ADDR)")
	f.StringVar(&c.interval, "every", "", "Interval between cycles, like 5m (env INTERVAL_MINUTES)")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.interval != "" {
		if cfg.Interval, err = parseInterval(c.interval); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing interval: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if c.http != "" {
		cfg.HTTPAddr = c.http
	}

	log := newLogger()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening state: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	w, err := newWatcher(cfg, store, log, reg, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring the watcher: %v\n", err)
		return subcommands.ExitFailure
	}

	var announcer treasury.Announcer
	if cfg.DiscordToken != "" {
		p, err := discord.NewPresence(cfg.DiscordToken, cfg.GuildID, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating the discord session: %v\n", err)
			return subcommands.ExitFailure
		}
		defer p.Close()
		announcer = p
	}

	sched, err := treasury.NewScheduler(w, announcer, cfg.Interval, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating the scheduler: %v\n", err)
		return subcommands.ExitFailure
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(ctx) })
	if cfg.HTTPAddr != "" {
		srv := api.New(w, store, reg, log)
		g.Go(func() error { return srv.Run(ctx, cfg.HTTPAddr) })
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
