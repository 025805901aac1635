package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func withCapturedOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := std
	std = log.New(&buf, "", 0)
	t.Cleanup(func() { std = prev })
	return &buf
}

func TestLevelGatingSuppressesBelowMinLevel(t *testing.T) {
	buf := withCapturedOutput(t)
	prevLevel := Level(minLevel.Load())
	t.Cleanup(func() { SetLevel(prevLevel) })

	SetLevel(LevelError)
	Infof("info message")
	Warnf("warn message")
	if buf.Len() != 0 {
		t.Fatalf("expected Infof/Warnf to be suppressed at LevelError, got %q", buf.String())
	}

	Errorf("error message")
	if !strings.Contains(buf.String(), "ERROR: error message") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestInfofWritesAtDefaultLevel(t *testing.T) {
	buf := withCapturedOutput(t)
	prevLevel := Level(minLevel.Load())
	t.Cleanup(func() { SetLevel(prevLevel) })

	SetLevel(LevelInfo)
	Infof("hello %s", "world")
	if !strings.Contains(buf.String(), "INFO: hello world") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWarnfFormatsArgs(t *testing.T) {
	buf := withCapturedOutput(t)
	prevLevel := Level(minLevel.Load())
	t.Cleanup(func() { SetLevel(prevLevel) })

	SetLevel(LevelWarn)
	Warnf("retry %d of %d", 1, 3)
	if !strings.Contains(buf.String(), "WARN: retry 1 of 3") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestPanicfPanicsWithFormattedMessage(t *testing.T) {
	buf := withCapturedOutput(t)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Panicf to panic")
		}
		msg, ok := r.(string)
		if !ok || msg != "invariant broken: 5" {
			t.Fatalf("got panic value %v", r)
		}
		if !strings.Contains(buf.String(), "PANIC: invariant broken: 5") {
			t.Fatalf("got %q", buf.String())
		}
	}()
	Panicf("invariant broken: %d", 5)
}
