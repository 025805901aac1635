package mtable

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/mergetable/mergetable/lib/predicate"
)

// ShardedEngine fans a table out across N independent Engines (each
// its own directory, part set and merge scheduler), routing rows by
// the xxhash of their primary key so a single hot key range doesn't
// concentrate all ingest on one part set.
type ShardedEngine struct {
	schema *Schema
	cfg    Config
	shards []*Engine
}

// OpenShardedEngine opens numShards Engines rooted at
// cfg.Dir/shard-<i>, each sharing schema and cfg (but writing to its
// own subdirectory).
func OpenShardedEngine(tableName string, schema *Schema, cfg Config, numShards int) (*ShardedEngine, error) {
	if numShards < 1 {
		numShards = 1
	}
	se := &ShardedEngine{schema: schema, cfg: cfg, shards: make([]*Engine, numShards)}
	for i := 0; i < numShards; i++ {
		shardCfg := cfg
		shardCfg.Dir = fmt.Sprintf("%s/shard-%d", cfg.Dir, i)
		e, err := OpenEngine(fmt.Sprintf("%s-shard%d", tableName, i), schema, shardCfg)
		if err != nil {
			return nil, err
		}
		se.shards[i] = e
	}
	return se, nil
}

// shardIndex hashes a row's primary key columns with xxhash to pick a
// destination shard.
func (se *ShardedEngine) shardIndex(block *Block, keyIdxs []int, row int) (int, error) {
	var h xxhash.Digest
	h.Reset()
	var tmp [8]byte
	for _, ci := range keyIdxs {
		v, err := keyValueAsInt64(block.Columns[ci], row)
		if err != nil {
			return 0, err
		}
		putUint64LE(tmp[:], uint64(v))
		h.Write(tmp[:])
	}
	return int(h.Sum64() % uint64(len(se.shards))), nil
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// Write partitions block's rows across shards by primary-key hash and
// writes each shard's partition independently.
func (se *ShardedEngine) Write(block *Block) error {
	if err := block.validateAgainstSchema(se.schema); err != nil {
		return err
	}
	keyIdxs, err := se.schema.primaryKeyIndexes()
	if err != nil {
		return err
	}

	perShard := make([]*Block, len(se.shards))
	for i := range perShard {
		perShard[i] = NewBlock(block.Schema)
	}
	for row := 0; row < block.Len(); row++ {
		si, err := se.shardIndex(block, keyIdxs, row)
		if err != nil {
			return err
		}
		perShard[si].AppendRowFrom(block, row)
	}
	for i, sb := range perShard {
		if sb.Len() == 0 {
			continue
		}
		if err := se.shards[i].Write(sb); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}

// Read fans the read out to every shard and concatenates the results.
// Row order across shards is not meaningful; callers that need a
// specific order must sort the returned Block themselves.
func (se *ShardedEngine) Read(columns []string, dateLo, dateHi int32, pred predicate.Predicate) (*Block, error) {
	var out *Block
	for _, e := range se.shards {
		b, err := e.Read(columns, dateLo, dateHi, pred)
		if err != nil {
			if errors.Is(err, ErrAllColumnsMissing) {
				continue
			}
			return nil, err
		}
		if out == nil || len(out.Columns) == 0 {
			out = b
			continue
		}
		out.AppendAllRowsFrom(b)
	}
	if out == nil {
		return nil, ErrAllColumnsMissing
	}
	return out, nil
}

// RunMergeOnce runs one merge round on every shard.
func (se *ShardedEngine) RunMergeOnce(ctx context.Context) error {
	for i, e := range se.shards {
		if err := e.RunMergeOnce(ctx); err != nil && err != ErrNothingToMerge {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}

// Merge runs iterations merge rounds on every shard, each the way
// Engine.Merge runs them on a single shard's part set.
func (se *ShardedEngine) Merge(ctx context.Context, iterations int, async bool) error {
	for i, e := range se.shards {
		if err := e.Merge(ctx, iterations, async); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}

// Drop drops every shard's Engine in turn, joining each shard's
// background merge workers before removing its directory.
func (se *ShardedEngine) Drop() error {
	for i, e := range se.shards {
		if err := e.Drop(); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}
