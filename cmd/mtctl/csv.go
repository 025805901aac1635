package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mergetable/mergetable/lib/calendar"
	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/mtable"
)

// readCSVBlock parses a CSV file whose header row names schema
// columns (in any order, any subset) into a Block ready for
// Engine.Write.
func readCSVBlock(path string, schema *mtable.Schema) (*mtable.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	colForField := make([]int, len(header))
	present := make([]bool, len(schema.Columns))
	for i, name := range header {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("CSV column %q not found in schema", name)
		}
		colForField[i] = idx
		present[idx] = true
	}

	block := mtable.NewBlock(schema)
	row := mtable.NewBlock(schema)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for fi, v := range rec {
			ci := colForField[fi]
			if err := appendScalar(row.Columns[ci], schema.Columns[ci].Type, v); err != nil {
				return nil, fmt.Errorf("column %q: %w", schema.Columns[ci].Name, err)
			}
		}
		for ci, ok := range present {
			if !ok {
				row.Columns[ci].AppendDefault(1)
			}
		}
		block.AppendRowFrom(row, 0)
		for _, c := range row.Columns {
			truncateColumn(c)
		}
	}
	return block, nil
}

func appendScalar(col column.Column, typ column.Type, v string) error {
	switch typ.Kind {
	case column.KindInt64:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		col.(*column.Int64Column).Values = append(col.(*column.Int64Column).Values, n)
	case column.KindFloat64:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		col.(*column.Float64Column).Values = append(col.(*column.Float64Column).Values, n)
	case column.KindString:
		col.(*column.StringColumn).Values = append(col.(*column.StringColumn).Values, v)
	case column.KindDate:
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return err
		}
		col.(*column.DateColumn).Values = append(col.(*column.DateColumn).Values, calendar.DayNumber(t))
	default:
		return fmt.Errorf("unsupported column kind %v for CSV ingest", typ.Kind)
	}
	return nil
}

// truncateColumn drops the single value just appended so the scratch
// row block can be reused for the next CSV record.
func truncateColumn(col column.Column) {
	switch c := col.(type) {
	case *column.Int64Column:
		c.Values = c.Values[:0]
	case *column.Float64Column:
		c.Values = c.Values[:0]
	case *column.StringColumn:
		c.Values = c.Values[:0]
	case *column.DateColumn:
		c.Values = c.Values[:0]
	}
}

// writeCSVBlock prints block as CSV with a header row to w.
func writeCSVBlock(w io.Writer, block *mtable.Block) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(block.Schema.Columns))
	for i, cd := range block.Schema.Columns {
		header[i] = cd.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for row := 0; row < block.Len(); row++ {
		rec := make([]string, len(block.Columns))
		for ci, col := range block.Columns {
			rec[ci] = formatScalar(col, row)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScalar(col column.Column, row int) string {
	switch c := col.(type) {
	case *column.Int64Column:
		return strconv.FormatInt(c.Values[row], 10)
	case *column.Float64Column:
		return strconv.FormatFloat(c.Values[row], 'g', -1, 64)
	case *column.StringColumn:
		return c.Values[row]
	case *column.DateColumn:
		return calendar.Date(c.Values[row]).Format("2006-01-02")
	default:
		return ""
	}
}
