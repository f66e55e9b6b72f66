// Package scheduler contains the background jobs that sweep campaigns and
// deliverables on a clock: contract slot reloads, auto-rejection of stale
// applications, and deadline reminder escalation.
package scheduler

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newSchedulerLogger builds a logger writing to both stdout and a rotated
// file under data/ (or /data in containerized environments).
func newSchedulerLogger(prefix, filename string) *log.Logger {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotor := &lumberjack.Logger{
			Filename:   filepath.Join(dir, filename),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, rotor)
		// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
		return log.New(mw, prefix+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}

	logger := log.Default()
	logger.Printf("%s: failed to initialize file logger, falling back to stdout", prefix)
	return logger
}

// RunResult aggregates the per-item outcomes of one sweep. A failed item
// never aborts the batch; it is counted and the sweep moves on.
type RunResult struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}
