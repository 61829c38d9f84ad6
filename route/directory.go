package route

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

const (
	MsgUnavailable = "Sorry, the bus schedule service is temporarily unavailable due to a configuration error."
	MsgNotFound    = "Sorry, I could not find a bus for that stop. Please try saying the name of the stop again."
	MsgLookupFault = "Sorry, I'm having trouble accessing the bus schedule right now."

	DefaultStopColumn = "StopName"
)

var ErrUnavailable = errors.New("route directory unavailable")

// Record is one directory row keyed by column header.
type Record = map[string]any

// Source yields every row of the backing store in its natural order.
type Source interface {
	Rows(ctx context.Context) ([]Record, error)
}

type Option func(*Directory)

func WithStopColumn(column string) Option {
	return func(d *Directory) {
		if c := strings.TrimSpace(column); c != "" {
			d.stopColumn = c
		}
	}
}

// Directory answers stop lookups with a fresh full scan of its source.
type Directory struct {
	source     Source
	stopColumn string
	initErr    error
}

var _ contractx.StopFinder = (*Directory)(nil)

func New(source Source, opts ...Option) *Directory {
	d := &Directory{
		source:     source,
		stopColumn: DefaultStopColumn,
	}
	if source == nil {
		d.initErr = ErrUnavailable
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Unavailable returns a directory that answers every lookup with the
// unavailable payload. It never recovers.
func Unavailable(cause error) *Directory {
	if cause == nil {
		cause = ErrUnavailable
	}
	return &Directory{stopColumn: DefaultStopColumn, initErr: cause}
}

// Close releases the source when it holds a connection.
func (d *Directory) Close() error {
	if d == nil || d.source == nil {
		return nil
	}
	if c, ok := d.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Directory) Available() bool {
	return d != nil && d.source != nil && d.initErr == nil
}

func (d *Directory) FindStop(ctx context.Context, fragment string) contractx.StopResult {
	if !d.Available() {
		return contractx.StopResult{Error: MsgUnavailable}
	}

	rows, err := d.source.Rows(ctx)
	if err != nil {
		logx.FromContext(ctx).Error().Err(err).Str("fragment", fragment).Msg("route directory lookup failed")
		return contractx.StopResult{Error: MsgLookupFault}
	}

	if row, ok := matchStop(rows, d.stopColumn, fragment); ok {
		return contractx.StopResult{Record: row}
	}
	return contractx.StopResult{Error: MsgNotFound}
}

func matchStop(rows []Record, column, fragment string) (Record, bool) {
	needle := strings.ToLower(fragment)
	for _, row := range rows {
		if row == nil {
			continue
		}
		var name string
		if v, ok := row[column]; ok && v != nil {
			name = fmt.Sprint(v)
		}
		if strings.Contains(strings.ToLower(name), needle) {
			return row, true
		}
	}
	return nil, false
}

// StaticSource serves a fixed row set.
type StaticSource []Record

func (s StaticSource) Rows(context.Context) ([]Record, error) {
	return s, nil
}
