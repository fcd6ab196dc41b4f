package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ColumnType is the value type stored in a table column
type ColumnType int

const (
	TextColumn ColumnType = iota
	FloatColumn
	IntColumn
	DateColumn
)

func (c ColumnType) String() string {
	switch c {
	case TextColumn:
		return "text"
	case FloatColumn:
		return "float"
	case IntColumn:
		return "int"
	case DateColumn:
		return "date"
	default:
		return "unknown"
	}
}

// Column is a named, typed table column
type Column struct {
	Name string
	Type ColumnType
}

// Table is a named tabular artifact handed to a persistence sink.
// Row cells hold string, float64, int or time.Time according to the column type;
// a nil cell is an absent value.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// NewTable creates an empty table with the given schema
func NewTable(name string, columns ...Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// ColumnNames returns the header row
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks every row against the schema: one cell per column,
// each nil or of the column's type.
func (t *Table) Validate() error {
	for n, row := range t.Rows {
		if err := t.checkRow(row); err != nil {
			return fmt.Errorf("table %s row %d: %w", t.Name, n, err)
		}
	}
	return nil
}

func (t *Table) checkRow(cells []any) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, expected %d", len(cells), len(t.Columns))
	}
	for i, cell := range cells {
		if cell == nil {
			continue
		}
		var ok bool
		switch t.Columns[i].Type {
		case TextColumn:
			_, ok = cell.(string)
		case FloatColumn:
			_, ok = cell.(float64)
		case IntColumn:
			_, ok = cell.(int)
		case DateColumn:
			_, ok = cell.(time.Time)
		}
		if !ok {
			return fmt.Errorf("column %q expects %s, got %T", t.Columns[i].Name, t.Columns[i].Type, cell)
		}
	}
	return nil
}

// FormatCell renders a cell as text. Absent values and NaN render as an empty string.
func FormatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(DateLayout)
	default:
		return fmt.Sprint(v)
	}
}
