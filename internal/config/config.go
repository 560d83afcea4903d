// Package config provides configuration types and helpers for laxa.
package config

import (
	"fmt"
	"strings"
)

// Config holds the application-wide configuration.
type Config struct {
	Format    string      `mapstructure:"format"`
	Verbose   bool        `mapstructure:"verbose"`
	Input     InputConfig `mapstructure:"input"`
	Workers   int         `mapstructure:"workers"`
	Threshold int         `mapstructure:"threshold"`
}

// InputConfig controls how records are read from files.
type InputConfig struct {
	// Format selects the reader: "auto", "text" or "csv".
	// Auto picks csv for .csv files and text otherwise.
	Format string `mapstructure:"format"`

	// Delimiter splits a text line into key and content at its first
	// occurrence.
	Delimiter string `mapstructure:"delimiter"`
}

// InputFormat is a record file format.
type InputFormat string

const (
	InputAuto InputFormat = "auto"
	InputText InputFormat = "text"
	InputCSV  InputFormat = "csv"
)

// ParseInputFormat converts a string to an InputFormat.
func ParseInputFormat(s string) (InputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return InputAuto, nil
	case "text", "txt":
		return InputText, nil
	case "csv":
		return InputCSV, nil
	default:
		return "", fmt.Errorf("unknown input format %q (must be 'auto', 'text', or 'csv')", s)
	}
}

// Record is one ingested record: a key and the text fragments that are
// hashed together.
type Record struct {
	Key      string   `json:"key"`
	Contents []string `json:"contents"`
	Source   string   `json:"source,omitempty"`
	Line     int      `json:"line"`
}

// Text joins the record's contents with single spaces.
func (r Record) Text() string {
	return strings.Join(r.Contents, " ")
}
