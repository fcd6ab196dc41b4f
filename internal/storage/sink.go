package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/model"
)

// Sink persists the tables a run produces
type Sink interface {
	WriteTable(ctx context.Context, table *model.Table) error
}

// FilePrefix builds the artifact prefix "<industry>_<start>_<end>"
func FilePrefix(industry string, start, end time.Time) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(industry), " ", "_"))
	if name == "" {
		name = "portfolio"
	}
	return fmt.Sprintf("%s_%s_%s", name, start.Format(model.DateLayout), end.Format(model.DateLayout))
}

// CSVSink writes every table to <Dir>/<Prefix>_<table>.csv
type CSVSink struct {
	Dir    string
	Prefix string
}

// Path returns the file a table is written to
func (s CSVSink) Path(table string) string {
	return filepath.Join(s.Dir, s.Prefix+"_"+table+".csv")
}

// WriteTable writes the header and all rows, replacing any previous file
func (s CSVSink) WriteTable(_ context.Context, table *model.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	path := s.Path(table.Name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range row {
			record[i] = model.FormatCell(cell)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("rows", len(table.Rows)).Msg("Table written")
	return nil
}

// MultiSink writes to every sink in order and stops at the first failure
type MultiSink []Sink

func (m MultiSink) WriteTable(ctx context.Context, table *model.Table) error {
	for _, s := range m {
		if err := s.WriteTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}
