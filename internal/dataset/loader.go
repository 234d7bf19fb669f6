package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"demandcast/internal/config"
	"demandcast/internal/infrastructure"
	"demandcast/pkg/contracts/domain"
)

// Columns names the three columns the loader needs
type Columns struct {
	Item      string
	Timestamp string
	Quantity  string
}

// Loader reads, concatenates and cleans transaction sources
type Loader struct {
	sources []Source
	columns Columns
	logger  *slog.Logger
}

// NewLoader builds a loader from configuration. Unrecognized source handles
// are reported as a ConfigError before anything is read.
func NewLoader(cfg config.DataConfig, logger *slog.Logger) (*Loader, error) {
	opts := SourceOptions{}
	switch {
	case cfg.SheetsCredentialsFile != "":
		opts.SheetsOptions = append(opts.SheetsOptions, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	case cfg.SheetsAPIKey != "":
		opts.SheetsOptions = append(opts.SheetsOptions, option.WithAPIKey(cfg.SheetsAPIKey))
	}

	sources := make([]Source, 0, len(cfg.Sources))
	for _, handle := range cfg.Sources {
		src, err := OpenSource(handle, opts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return NewLoaderWithSources(sources, Columns{
		Item:      cfg.ItemColumn,
		Timestamp: cfg.TimestampColumn,
		Quantity:  cfg.QuantityColumn,
	}, logger), nil
}

// NewLoaderWithSources builds a loader over already opened sources
func NewLoaderWithSources(sources []Source, columns Columns, logger *slog.Logger) *Loader {
	return &Loader{
		sources: sources,
		columns: columns,
		logger:  infrastructure.WithComponent(logger, "dataset"),
	}
}

// Load reads every source, concatenates rows in source order and drops rows
// whose timestamp or quantity is missing or unparseable. An empty result is
// not an error. Any source failing to open or lacking a column fails the
// whole load.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	if len(l.sources) == 0 {
		return nil, &ConfigError{Source: "(none)", Reason: "no data sources configured"}
	}

	start := time.Now()
	type part struct {
		records []domain.TransactionRecord
		stats   domain.SourceStats
	}
	parts := make([]part, len(l.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range l.sources {
		g.Go(func() error {
			frame, err := src.Read(gctx)
			if err != nil {
				return err
			}
			records, stats, err := l.clean(src, frame)
			if err != nil {
				return err
			}
			parts[i] = part{records: records, stats: stats}

			l.logger.InfoContext(gctx, "source loaded",
				slog.String("source", stats.Name),
				slog.String("kind", stats.Kind),
				slog.Int("rows_read", stats.RowsRead),
				slog.Int("rows_kept", stats.RowsKept),
				slog.Int("rows_dropped", stats.RowsDropped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "dataset load failed", slog.String("error", err.Error()))
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p.records)
	}
	records := make([]domain.TransactionRecord, 0, total)
	stats := make([]domain.SourceStats, 0, len(parts))
	for _, p := range parts {
		records = append(records, p.records...)
		stats = append(stats, p.stats)
	}

	table := NewTable(records, stats)
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.Int("rows", table.Len()),
		slog.Int("items", table.ItemCount()),
		slog.String("fingerprint", table.Fingerprint()),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

func (l *Loader) clean(src Source, frame *Frame) ([]domain.TransactionRecord, domain.SourceStats, error) {
	stats := domain.SourceStats{Name: src.Name(), Kind: src.Kind(), RowsRead: len(frame.Rows)}

	itemIdx, err := findColumn(src, frame.Header, l.columns.Item)
	if err != nil {
		return nil, stats, err
	}
	tsIdx, err := findColumn(src, frame.Header, l.columns.Timestamp)
	if err != nil {
		return nil, stats, err
	}
	qtyIdx, err := findColumn(src, frame.Header, l.columns.Quantity)
	if err != nil {
		return nil, stats, err
	}

	records := make([]domain.TransactionRecord, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		ts, ok := ParseTimestamp(cell(row, tsIdx), frame.SerialDates)
		if !ok {
			continue
		}
		qty, ok := ParseQuantity(cell(row, qtyIdx))
		if !ok {
			continue
		}
		records = append(records, domain.TransactionRecord{
			ItemID:    cell(row, itemIdx),
			Timestamp: ts,
			Quantity:  qty,
			Source:    stats.Name,
		})
	}

	stats.RowsKept = len(records)
	stats.RowsDropped = stats.RowsRead - stats.RowsKept
	return records, stats, nil
}

// findColumn matches header names case-insensitively, ignoring surrounding
// whitespace and a UTF-8 byte order mark.
func findColumn(src Source, header []string, name string) (int, error) {
	want := normalizeHeader(name)
	for i, h := range header {
		if normalizeHeader(h) == want {
			return i, nil
		}
	}
	return -1, &ConfigError{Source: src.Name(), Reason: fmt.Sprintf("missing column %q", name)}
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
