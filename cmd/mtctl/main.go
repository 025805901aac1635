// Command mtctl is an operator CLI for a mergetable table: ingest CSV
// rows, run range-pruned reads, trigger background merges, and print
// part-set statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mergetable/mergetable/lib/calendar"
	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/logger"
	"github.com/mergetable/mergetable/lib/mtable"
	"github.com/mergetable/mergetable/lib/predicate"
)

var (
	flagDir         = "dir"
	flagColumns     = "columns"
	flagPrimaryKey  = "primary-key"
	flagDateColumn  = "date-column"
	flagSignColumn  = "sign-column"
	flagFile        = "file"
	flagFrom        = "from"
	flagTo          = "to"
	flagSelect      = "select"
	flagGranularity = "granularity"
)

func main() {
	app := &cli.App{
		Name:  "mtctl",
		Usage: "inspect and drive a mergetable table",
		Commands: []*cli.Command{
			ingestCommand,
			readCommand,
			mergeCommand,
			statsCommand,
			dropCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}
}

var schemaFlags = []cli.Flag{
	&cli.StringFlag{Name: flagDir, Required: true, Usage: "table root directory"},
	&cli.StringFlag{Name: flagColumns, Required: true, Usage: `comma-separated "name:kind" pairs, e.g. "id:int64,ts:date,value:float64"`},
	&cli.StringFlag{Name: flagPrimaryKey, Required: true, Usage: "comma-separated primary key column names, in sort order"},
	&cli.StringFlag{Name: flagDateColumn, Required: true, Usage: "name of the date-typed partitioning column"},
	&cli.StringFlag{Name: flagSignColumn, Usage: "name of the sign column, enabling collapsing merges"},
	&cli.IntFlag{Name: flagGranularity, Value: 8192, Usage: "rows per mark"},
}

var ingestCommand = &cli.Command{
	Name:  "ingest",
	Usage: "parse a CSV file (header row = column names) and write it as one block",
	Flags: append(schemaFlags, &cli.StringFlag{Name: flagFile, Required: true, Usage: "CSV input path"}),
	Action: func(c *cli.Context) error {
		e, schema, err := openEngineFromFlags(c)
		if err != nil {
			return err
		}
		block, err := readCSVBlock(c.String(flagFile), schema)
		if err != nil {
			return err
		}
		if err := e.Write(block); err != nil {
			return err
		}
		fmt.Printf("wrote %d rows\n", block.Len())
		return nil
	},
}

var readCommand = &cli.Command{
	Name:  "read",
	Usage: "scan the table over a date range and print matching rows as CSV",
	Flags: append(schemaFlags,
		&cli.StringFlag{Name: flagFrom, Required: true, Usage: "YYYY-MM-DD, inclusive"},
		&cli.StringFlag{Name: flagTo, Required: true, Usage: "YYYY-MM-DD, inclusive"},
		&cli.StringFlag{Name: flagSelect, Usage: "comma-separated column names to read; defaults to every schema column"},
	),
	Action: func(c *cli.Context) error {
		e, schema, err := openEngineFromFlags(c)
		if err != nil {
			return err
		}
		dateLo, err := parseISODate(c.String(flagFrom))
		if err != nil {
			return err
		}
		dateHi, err := parseISODate(c.String(flagTo))
		if err != nil {
			return err
		}
		cols := c.String(flagSelect)
		var columns []string
		if cols == "" {
			for _, cd := range schema.Columns {
				columns = append(columns, cd.Name)
			}
		} else {
			columns = strings.Split(cols, ",")
		}
		block, err := e.Read(columns, dateLo, dateHi, predicate.Always{})
		if err != nil {
			return err
		}
		return writeCSVBlock(os.Stdout, block)
	},
}

var mergeCommand = &cli.Command{
	Name:  "merge",
	Usage: "run one round of background merges",
	Flags: schemaFlags,
	Action: func(c *cli.Context) error {
		e, _, err := openEngineFromFlags(c)
		if err != nil {
			return err
		}
		err = e.RunMergeOnce(context.Background())
		if err == mtable.ErrNothingToMerge {
			fmt.Println("nothing to merge")
			return nil
		}
		return err
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "print part-set statistics",
	Flags: schemaFlags,
	Action: func(c *cli.Context) error {
		e, _, err := openEngineFromFlags(c)
		if err != nil {
			return err
		}
		st := e.Stats()
		fmt.Printf("active parts: %d\n", st.ActiveParts)
		fmt.Printf("total rows:   %d\n", st.TotalRows)
		fmt.Printf("total marks:  %d\n", st.TotalMarks)
		for _, name := range e.ActivePartNames() {
			fmt.Println(" ", name)
		}
		return nil
	},
}

var dropCommand = &cli.Command{
	Name:  "drop",
	Usage: "delete the entire table directory",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: flagDir, Required: true},
		&cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			return fmt.Errorf("refusing to drop %q without --yes", c.String(flagDir))
		}
		return os.RemoveAll(c.String(flagDir))
	},
}

func openEngineFromFlags(c *cli.Context) (*mtable.Engine, *mtable.Schema, error) {
	schema, err := parseSchemaFlags(c)
	if err != nil {
		return nil, nil, err
	}
	cfg := mtable.DefaultConfig(c.String(flagDir))
	cfg.IndexGranularity = c.Int(flagGranularity)
	e, err := mtable.OpenEngine(path.Base(c.String(flagDir)), schema, cfg)
	if err != nil {
		return nil, nil, err
	}
	return e, schema, nil
}

func parseSchemaFlags(c *cli.Context) (*mtable.Schema, error) {
	var cols []mtable.ColumnDef
	for _, pair := range strings.Split(c.String(flagColumns), ",") {
		name, kindStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid column spec %q, want name:kind", pair)
		}
		kind, err := parseKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		cols = append(cols, mtable.ColumnDef{Name: name, Type: column.Type{Kind: kind}})
	}
	return &mtable.Schema{
		Columns:    cols,
		DateColumn: c.String(flagDateColumn),
		PrimaryKey: strings.Split(c.String(flagPrimaryKey), ","),
		SignColumn: c.String(flagSignColumn),
		Calendar:   calendar.Gregorian{},
	}, nil
}

func parseKind(s string) (column.Kind, error) {
	switch s {
	case "int64":
		return column.KindInt64, nil
	case "float64":
		return column.KindFloat64, nil
	case "string":
		return column.KindString, nil
	case "date":
		return column.KindDate, nil
	default:
		return 0, fmt.Errorf("unsupported column kind %q", s)
	}
}

func parseISODate(s string) (int32, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return calendar.DayNumber(t), nil
}
