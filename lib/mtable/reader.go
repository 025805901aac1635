package mtable

import (
	"path/filepath"

	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/fs"
)

// PartReader reads rows out of one on-disk part, opening only the
// column files a given read actually requests.
type PartReader struct {
	part   *Part
	schema *Schema
	cfg    Config
}

// OpenPartReader returns a reader over part. No files are opened
// until a Read call names specific columns.
func OpenPartReader(part *Part, schema *Schema, cfg Config) *PartReader {
	return &PartReader{part: part, schema: schema, cfg: cfg}
}

// ReadAll reads every mark of the part for the given columns.
func (r *PartReader) ReadAll(columns []string) (*Block, error) {
	return r.ReadMarkRange(columns, 0, int(r.part.size))
}

// ReadMarkRange reads marks [markStart, markEnd) of the part for the
// given columns. A column absent from the part's directory (added to
// the schema after this part was written) reads back as a full
// column of its type's default value. If every requested column is
// missing, it returns ErrAllColumnsMissing.
func (r *PartReader) ReadMarkRange(columns []string, markStart, markEnd int) (*Block, error) {
	if markStart == markEnd {
		return &Block{Schema: &Schema{Calendar: r.schema.Calendar}}, nil
	}

	boundaries := rowBoundaries(int(r.part.rows), r.cfg.IndexGranularity)
	if markEnd > len(boundaries) || markStart < 0 || markStart > markEnd {
		return nil, newErr(KindLogical, "mark range [%d,%d) out of bounds for part %q with %d marks", markStart, markEnd, r.part.name, len(boundaries))
	}
	rowStart := 0
	if markStart > 0 {
		rowStart = boundaries[markStart-1]
	}
	rowEnd := boundaries[markEnd-1]
	rowCount := rowEnd - rowStart

	subSchema := &Schema{
		DateColumn: r.schema.DateColumn,
		PrimaryKey: r.schema.PrimaryKey,
		SignColumn: r.schema.SignColumn,
		Calendar:   r.schema.Calendar,
	}
	cols := make([]column.Column, 0, len(columns))
	missing := 0
	for _, name := range columns {
		cd, ok := r.schema.ColumnDefByName(name)
		if !ok {
			return nil, newErr(KindLogical, "column %q not found in schema", name)
		}
		subSchema.Columns = append(subSchema.Columns, cd)

		if !columnFilesExist(r.part.dir, name) {
			missing++
			c := column.NewColumn(cd.Type)
			c.AppendDefault(rowCount)
			cols = append(cols, c)
			continue
		}
		c, err := readColumnRange(r.part.dir, name, cd.Type, markStart, markEnd, 0)
		if err != nil {
			return nil, wrapErr(KindIO, err, "part %q: column %q", r.part.name, name)
		}
		cols = append(cols, c)
	}
	if len(columns) > 0 && missing == len(columns) {
		return nil, ErrAllColumnsMissing
	}
	return &Block{Schema: subSchema, Columns: cols}, nil
}

// columnFilesExist reports whether name has on-disk files in dir,
// checking both the scalar layout (name.bin) and the array layout
// (name.size0.bin).
func columnFilesExist(dir, name string) bool {
	if fs.IsPathExist(filepath.Join(dir, name+".bin")) {
		return true
	}
	return fs.IsPathExist(filepath.Join(dir, name+".size0.bin"))
}
