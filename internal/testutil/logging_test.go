package testutil

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestCaptureLogBufferConcurrentWriters(t *testing.T) {
	logBuf := CaptureLogBuffer(t, slog.LevelWarn)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Go(func() {
			for range 25 {
				slog.Warn("[WARN-CONFIG] reload failed", "worker", i)
				_ = logBuf.Len()
			}
		})
	}
	wg.Wait()

	if got := strings.Count(logBuf.String(), "reload failed"); got != 100 {
		t.Fatalf("logged lines = %d, want 100", got)
	}
	if !logBuf.Contains("worker=3") {
		t.Fatalf("log output = %q, want worker=3", logBuf.String())
	}
}

func TestCaptureLogBufferHonorsLevelAndRestores(t *testing.T) {
	previous := slog.Default()
	t.Run("capture", func(t *testing.T) {
		logBuf := CaptureLogBuffer(t, slog.LevelWarn)
		slog.Info("key stream listening")
		if logBuf.Len() != 0 {
			t.Fatalf("info record captured at warn level: %q", logBuf.String())
		}
	})
	if slog.Default() != previous {
		t.Fatal("default logger not restored after the test")
	}
}
