// Package tail follows a growing record file and folds every new record
// into a running consensus digest.
//
// It implements "tail -f" like functionality with support for log rotation
// detection. Each record is hashed as it arrives and reported together with
// its distance to the consensus of everything seen so far.
package tail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/histogram"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/parser"
	"github.com/fsnotify/fsnotify"
)

const maxScanTokenSize = 1024 * 1024 // 1MB

// ErrRotated is returned when the file is rotated and FollowRotate is off.
var ErrRotated = errors.New("file rotated")

// Event is one record read from the file.
type Event struct {
	ingest.Result

	// Distance to the running consensus after this record was folded in.
	// -1 when the record could not be hashed.
	Distance int

	// Seen is the number of digests in the aggregate.
	Seen uint64
}

// Options configures the tailer behavior.
type Options struct {
	FilePath     string                // Path to the record file
	Lines        int                   // Number of initial records to fold in
	Follow       bool                  // Whether to follow the file for new content
	FollowRotate bool                  // Whether to follow through log rotations
	Parser       *parser.Parser        // Defaults to parser.New()
	Hasher       *ingest.Hasher        // Required
	Aggregator   *histogram.Aggregator // Required, may be shared
	Logger       *slog.Logger          // Defaults to slog.Default()
	OutputFunc   func(Event) error     // Called for each record
}

// Tailer handles tailing a record file.
type Tailer struct {
	opts    Options
	format  config.InputFormat
	file    *os.File
	offset  int64
	line    int
	watcher *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	if opts.Parser == nil {
		opts.Parser = parser.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tailer{
		opts:   opts,
		format: opts.Parser.FormatFor(opts.FilePath),
	}
}

// Run starts the tailing process. It blocks until context is cancelled or an error occurs.
func (t *Tailer) Run(ctx context.Context) error {
	if t.opts.Hasher == nil || t.opts.Aggregator == nil || t.opts.OutputFunc == nil {
		return errors.New("tail: hasher, aggregator and output function are required")
	}

	if err := t.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer t.close()

	if t.opts.Lines > 0 {
		if err := t.readInitialLines(); err != nil {
			return fmt.Errorf("failed to read initial lines: %w", err)
		}
	}

	if !t.opts.Follow {
		return nil
	}

	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	return t.watch(ctx)
}

// openFile opens the file and remembers its end as the follow position.
func (t *Tailer) openFile() error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return err
	}
	t.file = f

	if t.opts.Follow {
		stat, err := f.Stat()
		if err != nil {
			return err
		}
		t.offset = stat.Size()
	}

	return nil
}

// readInitialLines folds in the last N records of the file.
func (t *Tailer) readInitialLines() error {
	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()

	if fileSize == 0 {
		return nil
	}

	// Heuristic: ~300 bytes per line, doubled so we have enough lines.
	estimatedBytesNeeded := int64(t.opts.Lines * 300 * 2)
	startPos := max(fileSize-estimatedBytesNeeded, 0)

	lineNum := 0
	if startPos > 0 {
		if lineNum, err = t.linesBefore(startPos); err != nil {
			return err
		}
	}

	if _, err := t.file.Seek(startPos, io.SeekStart); err != nil {
		return err
	}

	scanner := newScanner(t.file)

	// If we're not at the start, skip the first partial line
	if startPos > 0 {
		scanner.Scan()
		lineNum++
	}
	skipHeader := startPos == 0 && t.format == config.InputCSV && t.opts.Parser.Header()

	var records []config.Record
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if skipHeader {
			skipHeader = false
			continue
		}

		rec, err := t.parseLine(line, lineNum)
		if err != nil {
			t.opts.Logger.Debug("skipping unparsable line", "line", lineNum, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	if len(records) > t.opts.Lines {
		records = records[len(records)-t.opts.Lines:]
	}

	for _, rec := range records {
		if err := t.emit(rec); err != nil {
			return err
		}
	}

	t.line = lineNum
	t.offset, err = t.file.Seek(0, io.SeekEnd)
	return err
}

// linesBefore counts the newlines in the first n bytes of the file, so
// records read from a later offset keep their absolute line numbers.
func (t *Tailer) linesBefore(n int64) (int, error) {
	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	count := 0
	buf := make([]byte, 64*1024)
	r := io.LimitReader(t.file, n)
	for {
		m, err := r.Read(buf)
		count += bytes.Count(buf[:m], []byte{'\n'})
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

// setupWatcher initializes the fsnotify watcher.
func (t *Tailer) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher

	return watcher.Add(t.opts.FilePath)
}

// watch monitors the file for changes and processes new lines.
func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}

			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write):
		return t.readNewContent()

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		return t.handleRotation(ctx)
	}

	return nil
}

// readNewContent processes every complete line appended since the last read.
func (t *Tailer) readNewContent() error {
	if stat, err := t.file.Stat(); err == nil && stat.Size() < t.offset {
		t.opts.Logger.Info("file truncated, reading from start", "file", t.opts.FilePath)
		t.offset = 0
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(t.file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// Partial line: leave it for the next write.
			return nil
		}
		if err != nil {
			return err
		}
		t.offset += int64(len(line))
		t.line++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, perr := t.parseLine(line, t.line)
		if perr != nil {
			t.opts.Logger.Debug("skipping unparsable line", "line", t.line, "error", perr)
			continue
		}
		if err := t.emit(rec); err != nil {
			return err
		}
	}
}

// handleRotation handles log file rotation.
func (t *Tailer) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		t.opts.Logger.Warn("file rotated, use --follow-rotate to follow through rotations", "file", t.opts.FilePath)
		return ErrRotated
	}

	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0
			t.line = 0

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}

			t.opts.Logger.Info("file rotated, following new file", "file", t.opts.FilePath)
			// Content written before the watch was re-added.
			return t.readNewContent()
		}
	}
}

// parseLine parses a single line into a record.
func (t *Tailer) parseLine(line string, lineNum int) (config.Record, error) {
	rec, err := t.opts.Parser.ParseRecord(line, t.format)
	if err != nil {
		return rec, err
	}
	rec.Line = lineNum
	rec.Source = t.opts.FilePath
	return rec, nil
}

// emit hashes rec, folds it into the aggregate and reports it.
func (t *Tailer) emit(rec config.Record) error {
	ev := Event{
		Result:   t.opts.Hasher.HashRecord(rec),
		Distance: -1,
	}
	if ev.Hash != nil {
		t.opts.Aggregator.Add(ev.Hash.Digest())
		ev.Distance = ev.Hash.Compare(t.opts.Aggregator.Consensus())
	}
	ev.Seen = t.opts.Aggregator.Len()

	return t.opts.OutputFunc(ev)
}

// close closes all resources.
func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	return scanner
}
