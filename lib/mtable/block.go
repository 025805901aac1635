package mtable

import "github.com/mergetable/mergetable/lib/column"

// Block is an in-memory, column-oriented set of rows: the unit
// ingested by PartWriter and produced by read streams. All columns in
// a Block must have equal length.
type Block struct {
	Schema  *Schema
	Columns []column.Column // parallel to Schema.Columns
}

// NewBlock allocates an empty Block with one (empty) column per
// schema column.
func NewBlock(schema *Schema) *Block {
	b := &Block{Schema: schema, Columns: make([]column.Column, len(schema.Columns))}
	for i, cd := range schema.Columns {
		b.Columns[i] = column.NewColumn(cd.Type)
	}
	return b
}

// Len returns the number of rows in the block (0 if the block has no
// columns).
func (b *Block) Len() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Len()
}

// Column returns the column named name, or nil if absent.
func (b *Block) Column(name string) column.Column {
	idx := b.Schema.ColumnIndex(name)
	if idx < 0 || idx >= len(b.Columns) {
		return nil
	}
	return b.Columns[idx]
}

// AppendRowFrom appends row i of src to b. Both blocks must share the
// same schema.
func (b *Block) AppendRowFrom(src *Block, i int) {
	for ci := range b.Columns {
		b.Columns[ci].AppendRowFrom(src.Columns[ci], i)
	}
}

// AppendAllRowsFrom appends every row of src to b, in order. Both
// blocks must have the same column count and order.
func (b *Block) AppendAllRowsFrom(src *Block) {
	for i := 0; i < src.Len(); i++ {
		b.AppendRowFrom(src, i)
	}
}

// validateAgainstSchema checks that b's column count and types match
// schema.
func (b *Block) validateAgainstSchema(schema *Schema) error {
	if len(b.Columns) != len(schema.Columns) {
		return newErr(KindLogical, "block has %d columns; schema has %d", len(b.Columns), len(schema.Columns))
	}
	for i, cd := range schema.Columns {
		if b.Columns[i].Type().Kind != cd.Type.Kind {
			return newErr(KindLogical, "column %d (%s): block type %v doesn't match schema type %v", i, cd.Name, b.Columns[i].Type().Kind, cd.Type.Kind)
		}
	}
	return nil
}
