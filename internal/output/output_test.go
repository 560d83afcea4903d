package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bimmerbailey/laxa/internal/analyzer"
	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/fuzzy/fuzzytest"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/linehash"
)

func testResults(t *testing.T) []ingest.Result {
	t.Helper()
	h := ingest.New(fuzzytest.Primitive{})
	return []ingest.Result{
		h.HashRecord(config.Record{Key: "a", Contents: []string{"aaaa"}, Source: "x.log", Line: 1}),
		h.HashRecord(config.Record{Key: "a", Contents: []string{"aaab"}, Source: "x.log", Line: 2}),
		h.HashRecord(config.Record{Key: "b", Contents: []string{""}, Source: "x.log", Line: 3}),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"table", FormatTable},
		{"text", FormatText},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		if got := ParseFormat(tt.input); got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteHashes(t *testing.T) {
	results := testResults(t)
	hash := results[0].Hash.String()

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatText).WriteHashes(results); err != nil {
			t.Fatalf("WriteHashes() error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("Expected 3 lines, got %d", len(lines))
		}
		if lines[0] != hash+"\ta\tx.log:1" {
			t.Errorf("line 0 = %q", lines[0])
		}
		if lines[2] != "-\tb\tx.log:3" {
			t.Errorf("line 2 = %q", lines[2])
		}
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatJSON).WriteHashes(results); err != nil {
			t.Fatalf("WriteHashes() error = %v", err)
		}
		var got []HashRecord
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(got) != 3 || got[0].Hash != hash || got[2].Hash != "" || got[2].Error == "" {
			t.Errorf("Unexpected records %+v", got)
		}
	})

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatTable).WriteHashes(results); err != nil {
			t.Fatalf("WriteHashes() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"LOCATION", "HASH", hash, "x.log:3"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in table output:\n%s", want, out)
			}
		}
	})
}

func TestWriteGroups(t *testing.T) {
	groups := analyzer.New(fuzzytest.Primitive{}).Group(testResults(t), 0)

	t.Run("text with outliers", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatText).WriteGroups(groups, 10); err != nil {
			t.Fatalf("WriteGroups() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"a  count=2", "distinct=2", "b  count=0", "skipped=1", "consensus -", "outlier"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("text without threshold", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatText).WriteGroups(groups, 0); err != nil {
			t.Fatalf("WriteGroups() error = %v", err)
		}
		if strings.Contains(buf.String(), "outlier") {
			t.Errorf("Expected no outliers without threshold:\n%s", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatJSON).WriteGroups(groups, 10); err != nil {
			t.Fatalf("WriteGroups() error = %v", err)
		}
		var got []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(got) != 2 || got[0]["key"] != "a" || got[0]["consensus"] == nil {
			t.Errorf("Unexpected groups %+v", got)
		}
		if _, ok := got[0]["outliers"]; !ok {
			t.Errorf("Expected outliers in first group: %+v", got[0])
		}
		if _, ok := got[0]["Members"]; ok {
			t.Errorf("Members should not be serialized")
		}
	})

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := New(buf, FormatTable).WriteGroups(groups, 0); err != nil {
			t.Fatalf("WriteGroups() error = %v", err)
		}
		if !strings.Contains(buf.String(), groups[0].Consensus) {
			t.Errorf("Expected consensus in table output:\n%s", buf.String())
		}
	})
}

func TestWriteMatches(t *testing.T) {
	probe, err := linehash.FromText(fuzzytest.Primitive{}, "aaab")
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	matches := analyzer.New(fuzzytest.Primitive{}).Rank(testResults(t), probe, 0)

	buf := &bytes.Buffer{}
	if err := New(buf, FormatText).WriteMatches(matches); err != nil {
		t.Fatalf("WriteMatches() error = %v", err)
	}
	want := "0\ta\taaab\n33\ta\taaaa\n"
	if buf.String() != want {
		t.Errorf("WriteMatches() = %q, want %q", buf.String(), want)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := truncate(long)
	if len(got) != maxTextWidth || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate() = %q", got)
	}
	if truncate("short") != "short" {
		t.Errorf("truncate() changed a short string")
	}
}
