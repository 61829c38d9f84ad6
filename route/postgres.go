package route

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string
	Table   string
	OrderBy string
}

// PostgresSource reads route rows from a table. It never writes.
type PostgresSource struct {
	db      *bun.DB
	table   string
	orderBy string
}

func NewPostgresSource(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres: dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return NewPostgresSourceFromDB(db, cfg.Table, cfg.OrderBy)
}

func NewPostgresSourceFromDB(db *bun.DB, table, orderBy string) (*PostgresSource, error) {
	if db == nil {
		return nil, errors.New("postgres: db is nil")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("postgres: table is required")
	}
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return nil, errors.New("postgres: order by column is required for a stable row order")
	}
	return &PostgresSource{
		db:      db,
		table:   table,
		orderBy: orderBy,
	}, nil
}

func (s *PostgresSource) query() *bun.SelectQuery {
	q := s.db.NewSelect().
		ColumnExpr("*").
		TableExpr("?", bun.Ident(s.table)).
		OrderExpr("? ASC", bun.Ident(s.orderBy))
	return q
}

func (s *PostgresSource) Rows(ctx context.Context) ([]Record, error) {
	var rows []map[string]interface{}
	if err := s.query().Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", s.table, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		records = append(records, row)
	}
	return records, nil
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}
