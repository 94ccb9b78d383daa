// Package cmd implements the tsy CLI application to watch a treasury.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/treasury"
	"github.com/etnz/treasury/coingecko"
	"github.com/etnz/treasury/discord"
	"github.com/etnz/treasury/redisstore"
	"github.com/etnz/treasury/solana"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Commands lists the subcommands of the application.
var Commands = []subcommands.Command{
	&watchCmd{},
	&onceCmd{},
	&showCmd{},
	&addCmd{},
	&removeCmd{},
	&priceCmd{},
	&topicCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.
// Empty flags fall back to the environment, then to the default.

var (
	stateFlag       = flag.String("state", "", "Path to the state file (env TREASURY_STATE, default balances.json)")
	redisFlag       = flag.String("redis", "", "Redis address holding the state instead of the file (env TREASURY_REDIS_ADDR)")
	rpcFlag         = flag.String("rpc", "", "Solana RPC endpoint (env RPC_URL, default mainnet)")
	commitmentFlag  = flag.String("commitment", "", "RPC commitment: processed, confirmed or finalized (env RPC_COMMITMENT, default confirmed)")
	localeFlag      = flag.String("locale", "", "Locale of the displayed numbers (env TREASURY_LOCALE, default en-US)")
	currencyFlag    = flag.String("currency", "", "Fiat currency of the valuation (env TREASURY_CURRENCY, default USD)")
	webhookFlag     = flag.String("webhook", "", "Discord webhook URL (env WEBHOOK_URL)")
	messageFlag     = flag.String("message", "", "Id of the webhook message to edit (env WEBHOOK_MESSAGE_ID)")
	envFileFlag     = flag.String("env", ".env", "File of environment variables to load, if it exists")
	verboseFlag     = flag.Bool("v", false, "Log debug messages")
	defaultInterval = 5 * time.Minute
)

// config is the resolved configuration of the application.
type config struct {
	State        string
	RedisAddr    string
	RPC          string
	Commitment   string
	Locale       string
	Currency     string
	WebhookURL   string
	MessageID    string
	DiscordToken string
	GuildID      string
	ImageURL     string
	HTTPAddr     string
	Interval     time.Duration
}

// loadConfig loads the env file, then resolves flags and environment variables.
func loadConfig() (*config, error) {
	if err := godotenv.Load(*envFileFlag); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", *envFileFlag, err)
	}
	c := &config{
		State:        setting(*stateFlag, "TREASURY_STATE", "balances.json"),
		RedisAddr:    setting(*redisFlag, "TREASURY_REDIS_ADDR", ""),
		RPC:          setting(*rpcFlag, "RPC_URL", solana.DefaultEndpoint),
		Commitment:   setting(*commitmentFlag, "RPC_COMMITMENT", "confirmed"),
		Locale:       setting(*localeFlag, "TREASURY_LOCALE", "en-US"),
		Currency:     setting(*currencyFlag, "TREASURY_CURRENCY", "USD"),
		WebhookURL:   setting(*webhookFlag, "WEBHOOK_URL", ""),
		MessageID:    setting(*messageFlag, "WEBHOOK_MESSAGE_ID", ""),
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),
		ImageURL:     os.Getenv("TREASURY_IMAGE_URL"),
		HTTPAddr:     os.Getenv("TREASURY_HTTP_ADDR"),
		Interval:     defaultInterval,
	}
	if v := os.Getenv("INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("INTERVAL_MINUTES=%q is not a positive number of minutes", v)
		}
		c.Interval = time.Duration(n) * time.Minute
	}
	return c, nil
}

// parseInterval parses a duration like "5m", or a bare number of minutes.
func parseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, strconv.ErrRange
	}
	return d, nil
}

// setting returns the flag value if set, then the environment variable, then def.
func setting(flagValue, env, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verboseFlag {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// openStore returns the redis store when configured, the file store otherwise.
func openStore(ctx context.Context, c *config) (treasury.StateStore, func(), error) {
	if c.RedisAddr == "" {
		return treasury.NewFileStore(c.State), func() {}, nil
	}
	s, err := redisstore.New(ctx, c.RedisAddr, "")
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

func newReader(c *config) (*solana.Reader, error) {
	commitment, err := solana.ParseCommitment(c.Commitment)
	if err != nil {
		return nil, err
	}
	return solana.NewReader(c.RPC, solana.WithCommitment(commitment)), nil
}

func newOracle(c *config, log logrus.FieldLogger) *coingecko.Oracle {
	return coingecko.New("solana", c.Currency, coingecko.WithLogger(log))
}

func reportOptions(c *config) (treasury.ReportOptions, error) {
	f, err := treasury.ParseFormatter(c.Locale)
	if err != nil {
		return treasury.ReportOptions{}, err
	}
	return treasury.ReportOptions{Currency: strings.ToUpper(c.Currency), Formatter: f}, nil
}

// newPublisher returns the webhook publisher, or nil when no webhook is configured.
func newPublisher(c *config) (treasury.Publisher, error) {
	if c.WebhookURL == "" {
		return nil, nil
	}
	var opts []discord.WebhookOption
	if c.ImageURL != "" {
		opts = append(opts, discord.WithImage(c.ImageURL))
	}
	return discord.NewWebhook(c.WebhookURL, c.MessageID, opts...)
}

// newWatcher wires a Watcher from the configuration. publish is false for dry runs.
func newWatcher(c *config, store treasury.StateStore, log logrus.FieldLogger, reg prometheus.Registerer, publish bool) (*treasury.Watcher, error) {
	reader, err := newReader(c)
	if err != nil {
		return nil, err
	}
	opts, err := reportOptions(c)
	if err != nil {
		return nil, err
	}
	cfg := treasury.Config{
		Store:  store,
		Reader: reader,
		Oracle: newOracle(c, log),
		Report: opts,
		Log:    log,
	}
	if reg != nil {
		cfg.Metrics = treasury.NewMetrics(reg)
	}
	if publish {
		if cfg.Publisher, err = newPublisher(c); err != nil {
			return nil, err
		}
		if cfg.Publisher == nil {
			log.Warn("no webhook configured, reports are not published")
		}
	}
	return treasury.NewWatcher(cfg)
}

// printPersistError reports a failed write of the state.
func printPersistError(err error) {
	if errors.Is(err, treasury.ErrStateChanged) {
		fmt.Fprintln(os.Stderr, "Error: the state was written by another process meanwhile, nothing was changed. Try again.")
		return
	}
	fmt.Fprintf(os.Stderr, "Error writing state: %v\n", err)
}

// printMarkdown renders markdown for the terminal, or prints it raw when it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
