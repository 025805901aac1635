package mtable

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mergetable/mergetable/lib/fs"
	"github.com/mergetable/mergetable/lib/logger"
)

const incrementFileName = "increment.txt"

// incrementAllocator hands out monotonically increasing part ids,
// persisting the high-water mark to increment.txt so ids survive a
// restart.
type incrementAllocator struct {
	mu   sync.Mutex
	path string
	next uint64
}

func openIncrementAllocator(dir string) (*incrementAllocator, error) {
	path := filepath.Join(dir, incrementFileName)
	ia := &incrementAllocator{path: path}
	if !fs.IsPathExist(path) {
		ia.next = 1
		ia.persistLocked()
		return ia, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot read %q", path)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return nil, wrapErr(KindLogical, err, "corrupt increment file %q", path)
	}
	ia.next = v
	return ia, nil
}

// allocate reserves n consecutive ids and returns the first one; the
// allocator's persisted state is advanced past the whole range before
// returning, so a crash never hands out the same id twice.
func (ia *incrementAllocator) allocate(n uint64) uint64 {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	first := ia.next
	ia.next += n
	ia.persistLocked()
	return first
}

func (ia *incrementAllocator) persistLocked() {
	data := []byte(strconv.FormatUint(ia.next, 10))
	if err := os.WriteFile(ia.path, data, 0o644); err != nil {
		logger.Panicf("FATAL: cannot persist %q: %s", ia.path, err)
	}
}
