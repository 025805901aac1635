// Package logger provides leveled logging for mergetable.
//
// A small stdlib-based logger instead of zap/zerolog: lib/mtable calls
// Infof/Warnf/Errorf/Panicf directly.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level is the minimum severity that gets printed.
type Level int32

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

var minLevel atomic.Int32

// SetLevel sets the minimum level printed by this package.
func SetLevel(lvl Level) {
	minLevel.Store(int32(lvl))
}

var std = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

func logf(lvl Level, prefix, format string, args ...any) {
	if Level(minLevel.Load()) > lvl {
		return
	}
	std.Output(3, prefix+fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logf(LevelInfo, "INFO: ", format, args...)
}

// Warnf logs a recoverable anomaly.
func Warnf(format string, args ...any) {
	logf(LevelWarn, "WARN: ", format, args...)
}

// Errorf logs an operation failure that doesn't crash the process.
func Errorf(format string, args ...any) {
	logf(LevelError, "ERROR: ", format, args...)
}

// Panicf logs a fatal invariant violation and panics.
//
// Used for bugs that must never happen in a correct program, following
// a "FATAL: ..." / "BUG: ..." panic convention.
func Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	std.Output(2, "PANIC: "+msg) //nolint:errcheck
	panic(msg)
}
