// Package output provides formatted output rendering for line hashes and
// aggregation results. It supports text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bimmerbailey/laxa/internal/analyzer"
	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

const maxTextWidth = 80

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Format returns the configured output format.
func (wr *Writer) Format() Format {
	return wr.format
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSONLine outputs v as a single line of JSON.
func (wr *Writer) WriteJSONLine(v any) error {
	return json.NewEncoder(wr.w).Encode(v)
}

// WriteTable renders rows under headers.
func (wr *Writer) WriteTable(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(wr.w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// HashRecord is the serialized form of one hashed record.
type HashRecord struct {
	Key    string `json:"key"`
	Source string `json:"source,omitempty"`
	Line   int    `json:"line"`
	Hash   string `json:"hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

func hashRecord(r ingest.Result) HashRecord {
	hr := HashRecord{
		Key:    r.Record.Key,
		Source: r.Record.Source,
		Line:   r.Record.Line,
	}
	if r.Hash != nil {
		hr.Hash = r.Hash.String()
	}
	if r.Err != nil {
		hr.Error = r.Err.Error()
	}
	return hr
}

// WriteHashes outputs one line hash per record. Records that could not be
// hashed are shown with a "-" hash.
func (wr *Writer) WriteHashes(results []ingest.Result) error {
	records := make([]HashRecord, len(results))
	for i, r := range results {
		records[i] = hashRecord(r)
	}

	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(records)
	case FormatTable:
		rows := make([][]string, len(records))
		for i, r := range records {
			rows[i] = []string{location(r.Source, r.Line), r.Key, orDash(r.Hash)}
		}
		return wr.WriteTable([]string{"LOCATION", "KEY", "HASH"}, rows)
	default:
		for _, r := range records {
			fmt.Fprintf(wr.w, "%s\t%s\t%s\n", orDash(r.Hash), r.Key, location(r.Source, r.Line))
		}
		return nil
	}
}

// GroupReport is the serialized form of a group with its outliers.
type GroupReport struct {
	analyzer.GroupResult
	Outliers []analyzer.Member `json:"outliers,omitempty"`
}

// WriteGroups outputs group summaries. With a positive threshold, members
// farther than threshold from their consensus are listed as outliers.
func (wr *Writer) WriteGroups(groups []analyzer.GroupResult, threshold int) error {
	reports := make([]GroupReport, len(groups))
	for i, g := range groups {
		reports[i] = GroupReport{GroupResult: g}
		if threshold > 0 {
			reports[i].Outliers = g.Outliers(threshold)
		}
	}

	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(reports)
	case FormatTable:
		rows := make([][]string, len(reports))
		for i, r := range reports {
			rows[i] = []string{
				keyOrNone(r.Key),
				strconv.Itoa(r.Count),
				strconv.Itoa(r.Distinct),
				strconv.Itoa(r.Skipped),
				fmt.Sprintf("%.1f", r.MeanDistance),
				strconv.Itoa(r.MaxDistance),
				strconv.Itoa(len(r.Outliers)),
				orDash(r.Consensus),
			}
		}
		return wr.WriteTable([]string{"KEY", "COUNT", "DISTINCT", "SKIPPED", "MEAN", "MAX", "OUTLIERS", "CONSENSUS"}, rows)
	default:
		for _, r := range reports {
			fmt.Fprintf(wr.w, "%s  count=%d (%.1f%%) distinct=%d skipped=%d mean=%.1f max=%d\n",
				keyOrNone(r.Key), r.Count, r.Percent, r.Distinct, r.Skipped, r.MeanDistance, r.MaxDistance)
			fmt.Fprintf(wr.w, "  consensus %s\n", orDash(r.Consensus))
			for _, m := range r.Outliers {
				fmt.Fprintf(wr.w, "  outlier   %4d  %s  %s\n",
					m.Distance, location(m.Record.Source, m.Record.Line), truncate(m.Record.Text()))
			}
		}
		return nil
	}
}

// WriteMatches outputs ranked matches, closest first.
func (wr *Writer) WriteMatches(matches []analyzer.Match) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(matches)
	case FormatTable:
		rows := make([][]string, len(matches))
		for i, m := range matches {
			rows[i] = []string{
				strconv.Itoa(m.Distance),
				location(m.Record.Source, m.Record.Line),
				m.Record.Key,
				truncate(m.Record.Text()),
			}
		}
		return wr.WriteTable([]string{"DISTANCE", "LOCATION", "KEY", "TEXT"}, rows)
	default:
		for _, m := range matches {
			fmt.Fprintf(wr.w, "%d\t%s\t%s\n", m.Distance, m.Record.Key, m.Record.Text())
		}
		return nil
	}
}

func location(source string, line int) string {
	if source == "" {
		return strconv.Itoa(line)
	}
	return source + ":" + strconv.Itoa(line)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func keyOrNone(key string) string {
	if key == "" {
		return "(none)"
	}
	return key
}

func truncate(s string) string {
	if len(s) > maxTextWidth {
		return s[:maxTextWidth-3] + "..."
	}
	return s
}

// recordText renders a record as key and text for line-oriented output.
func recordText(r config.Record) string {
	if r.Key == "" {
		return r.Text()
	}
	return r.Key + " " + r.Text()
}
