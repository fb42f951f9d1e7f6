package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/config"
	"github.com/zoomscribe/zoomscribe/internal/logging"
	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

// commonFlags are the flags shared by the download and list commands.
type commonFlags struct {
	envFile   string
	from      string
	to        string
	hostEmail string
	meetingID string
	logLevel  string
	logFormat string
}

// loadApp loads configuration, configures the global logger, and builds the
// Zoom client. Flag values override their environment counterparts.
func loadApp(flags commonFlags) (*config.Config, *slog.Logger, *zoom.Client, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	logger, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, nil, err
	}

	tokens, err := zoom.NewTokenProvider(zoom.Credentials{
		AccountID:    cfg.Credentials.AccountID,
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
	}, cfg.TokenURL)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := zoom.NewClient(zoom.Config{
		BaseURL: cfg.BaseURL,
		Tokens:  tokens,
		Scope:   zoom.ListScope(cfg.Scope),
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, client, nil
}

// buildFilters turns the from/to/host/meeting flags into listing filters,
// applying the configured lookback when no start date is given.
func buildFilters(cfg *config.Config, flags commonFlags) (zoom.Filters, error) {
	var filters zoom.Filters

	now := time.Now().UTC()
	end := now
	if flags.to != "" {
		t, err := parseDateFlag(flags.to)
		if err != nil {
			return filters, fmt.Errorf("invalid --to: %w", err)
		}
		// Inclusive of the whole end day.
		end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	start := end.AddDate(0, 0, -cfg.RangeDays)
	if flags.from != "" {
		t, err := parseDateFlag(flags.from)
		if err != nil {
			return filters, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}
	if start.After(end) {
		return filters, fmt.Errorf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	filters.From = start
	filters.To = end
	filters.HostEmail = flags.hostEmail
	filters.MeetingID = flags.meetingID
	return filters, nil
}

func parseDateFlag(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t.UTC(), nil
}

func registerCommonFlags(flags *commonFlags, set interface {
	StringVar(p *string, name, value, usage string)
}) {
	set.StringVar(&flags.envFile, "env-file", "", "Dotenv file to preload (default: .env when present)")
	set.StringVar(&flags.from, "from", "", "Start date (YYYY-MM-DD)")
	set.StringVar(&flags.to, "to", "", "End date (YYYY-MM-DD)")
	set.StringVar(&flags.hostEmail, "host-email", "", "Filter recordings by host email")
	set.StringVar(&flags.meetingID, "meeting-id", "", "Filter recordings by meeting id or UUID")
	set.StringVar(&flags.logLevel, "log-level", "", "Logging verbosity: debug, info, warn, error")
	set.StringVar(&flags.logFormat, "log-format", "", "Logging output format: auto, json, text")
}
