package route

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

type Config struct {
	Backend         string        `split_words:"true" default:"sheets"`
	SheetID         string        `envconfig:"SHEET_ID" default:"1YNVgp9OlLOfLd3ZTqs8SAEWNOpqP88GHrqjenAZqzp4"`
	SheetRange      string        `split_words:"true"`
	CredentialsFile string        `split_words:"true" default:"credentials/service-account.json"`
	StopColumn      string        `split_words:"true" default:"StopName"`
	PostgresDSN     string        `envconfig:"POSTGRES_DSN"`
	PostgresTable   string        `split_words:"true" default:"bus_routes"`
	PostgresOrderBy string        `split_words:"true" default:"SerialNo"`
	File            string        `envconfig:"FILE"`
	InitTimeout     time.Duration `split_words:"true" default:"15s"`
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendSheets:
		return nil
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresOrderBy) == "" {
			return fmt.Errorf("routes: ROUTES_POSTGRES_ORDER_BY is required for the %s backend", BackendPostgres)
		}
		return nil
	case BackendFile:
		if strings.TrimSpace(c.File) == "" {
			return fmt.Errorf("routes: ROUTES_FILE is required for the %s backend", BackendFile)
		}
		return nil
	default:
		return fmt.Errorf("routes: unsupported backend %q", c.Backend)
	}
}

// Open connects the configured source. Failure is logged and yields a
// directory that stays unavailable for the life of the process.
func Open(ctx context.Context, cfg Config) *Directory {
	if cfg.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.InitTimeout)
		defer cancel()
	}

	log := logx.FromContext(ctx)
	source, err := openSource(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Backend).Msg("route directory unavailable")
		return Unavailable(err)
	}

	log.Info().Str("backend", cfg.Backend).Msg("route directory connected")
	return New(source, WithStopColumn(cfg.StopColumn))
}

func openSource(ctx context.Context, cfg Config) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendPostgres:
		return NewPostgresSource(ctx, PostgresConfig{
			DSN:     cfg.PostgresDSN,
			Table:   cfg.PostgresTable,
			OrderBy: cfg.PostgresOrderBy,
		})
	case BackendFile:
		return NewFileSource(cfg.File)
	case BackendSheets, "":
		return NewSheetsSource(ctx, SheetsConfig{
			SpreadsheetID:   cfg.SheetID,
			Range:           cfg.SheetRange,
			CredentialsFile: cfg.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
