package output

import (
	"fmt"
	"os"

	"github.com/bimmerbailey/laxa/internal/tail"
	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// Severity classifies a record by its distance to the consensus.
type Severity int

const (
	SeverityNormal   Severity = iota // Within half the threshold
	SeverityUnhashed                 // No digest could be built
	SeverityNear                     // Past half the threshold
	SeverityOutlier                  // Past the threshold
)

// Classify maps a distance to a Severity. A negative distance means the
// record was not hashed. Without a positive threshold every hashed record is
// normal.
func Classify(distance, threshold int) Severity {
	switch {
	case distance < 0:
		return SeverityUnhashed
	case threshold <= 0:
		return SeverityNormal
	case distance > threshold:
		return SeverityOutlier
	case distance > threshold/2:
		return SeverityNear
	default:
		return SeverityNormal
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w any) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// ColorizeLine applies the color for sev to an entire line.
func ColorizeLine(sev Severity, line string) string {
	switch sev {
	case SeverityUnhashed:
		return colorGray + line + colorReset
	case SeverityNear:
		return colorYellow + line + colorReset
	case SeverityOutlier:
		return colorBold + colorRed + line + colorReset
	default:
		return line
	}
}

// EventRecord is the serialized form of a followed record.
type EventRecord struct {
	HashRecord
	Distance int    `json:"distance"`
	Seen     uint64 `json:"seen"`
	Outlier  bool   `json:"outlier"`
}

// FormatEvent formats a followed record as "distance key text", with
// optional coloring.
func FormatEvent(ev tail.Event, threshold int, colorize bool) string {
	dist := "   -"
	if ev.Distance >= 0 {
		dist = fmt.Sprintf("%4d", ev.Distance)
	}
	line := dist + "  " + recordText(ev.Record)

	if colorize {
		return ColorizeLine(Classify(ev.Distance, threshold), line)
	}
	return line
}

// WriteEvent writes a followed record. JSON output is one object per line;
// other formats use FormatEvent with color based on ColorMode.
func (wr *Writer) WriteEvent(ev tail.Event, threshold int, mode ColorMode) error {
	if wr.format == FormatJSON {
		return wr.WriteJSONLine(EventRecord{
			HashRecord: hashRecord(ev.Result),
			Distance:   ev.Distance,
			Seen:       ev.Seen,
			Outlier:    Classify(ev.Distance, threshold) == SeverityOutlier,
		})
	}

	line := FormatEvent(ev, threshold, shouldColorize(mode, wr.w))
	_, err := fmt.Fprintln(wr.w, line)
	return err
}
