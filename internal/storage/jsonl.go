package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLWriter appends JSON lines to a size-rotated file from a background
// goroutine so callers never block on disk I/O.
type JSONLWriter struct {
	filename string
	writeCh  chan any
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *lumberjack.Logger
	mu       sync.Mutex
	closed   bool
}

// ManifestPath returns the manifest file for a run layout:
// dir/origin/searchTerm-<unix>.jsonl.
func ManifestPath(dir string, layout Layout, started time.Time) string {
	return filepath.Join(dir, layout.Origin, fmt.Sprintf("%s-%d.jsonl", layout.SearchTerm, started.Unix()))
}

// NewJSONLWriter opens an async JSONL writer on filename.
func NewJSONLWriter(filename string, bufferSize int, maxSizeMB int) (*JSONLWriter, error) {
	if err := EnsureDir(filepath.Dir(filename)); err != nil {
		return nil, &DirError{Dir: filepath.Dir(filename), Err: err}
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	w := &JSONLWriter{
		filename: filename,
		writeCh:  make(chan any, bufferSize),
		done:     make(chan struct{}),
		logger: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    maxSizeMB,
			MaxBackups: 100,
			MaxAge:     30,
			Compress:   false,
			LocalTime:  false,
		},
	}

	w.wg.Add(1)
	go w.writeLoop()

	slog.Info("Opened manifest file", "file", filename)
	return w, nil
}

// Filename is the active manifest path.
func (w *JSONLWriter) Filename() string {
	return w.filename
}

// Write queues a record for async writing
func (w *JSONLWriter) Write(record any) error {
	select {
	case <-w.done:
		return fmt.Errorf("writer is closed")
	default:
	}

	select {
	case w.writeCh <- record:
		return nil
	case <-w.done:
		return fmt.Errorf("writer is closed")
	default:
		// Channel full, log warning but don't block
		slog.Warn("JSONL write buffer full, dropping record", "file", w.filename)
		return fmt.Errorf("buffer full")
	}
}

// Close stops the writer after flushing queued records.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	// Drain remaining items with timeout
	timeout := time.After(5 * time.Second)
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-timeout:
			slog.Warn("JSONL writer close timeout, some records may be lost", "file", w.filename)
			return w.logger.Close()
		default:
			return w.logger.Close()
		}
	}
}

func (w *JSONLWriter) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *JSONLWriter) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("Failed to marshal record", "error", err, "file", w.filename)
		return
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("Failed to write record", "error", err, "file", w.filename)
	}
}
