// Package parser reads records from text and CSV files.
//
// A text line is split at the first occurrence of the delimiter into a key
// and a single content fragment; lines without the delimiter have an empty
// key. In CSV input the first column is the key and the remaining columns
// are the content fragments.
package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimmerbailey/laxa/internal/config"
)

// DefaultDelimiter separates key and content in text input.
const DefaultDelimiter = " "

const maxLineSize = 1024 * 1024

// ErrMissingKey is returned for a CSV record with no columns.
var ErrMissingKey = errors.New("missing key column")

// Parser reads records in a fixed input format.
type Parser struct {
	format    config.InputFormat
	delimiter string
	header    bool
	stdin     io.Reader
}

// Option configures a Parser.
type Option func(*Parser)

// WithFormat sets the input format. Default is config.InputAuto.
func WithFormat(format config.InputFormat) Option {
	return func(p *Parser) {
		if format != "" {
			p.format = format
		}
	}
}

// WithDelimiter sets the key delimiter for text input. An empty delimiter
// keeps DefaultDelimiter.
func WithDelimiter(delimiter string) Option {
	return func(p *Parser) {
		if delimiter != "" {
			p.delimiter = delimiter
		}
	}
}

// WithHeader controls whether the first CSV row is a header and skipped.
// Default is true.
func WithHeader(header bool) Option {
	return func(p *Parser) {
		p.header = header
	}
}

// New creates a Parser with the given options.
func New(opts ...Option) *Parser {
	p := &Parser{
		format:    config.InputAuto,
		delimiter: DefaultDelimiter,
		header:    true,
		stdin:     os.Stdin,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FormatFor resolves the format used for path.
func (p *Parser) FormatFor(path string) config.InputFormat {
	if p.format != config.InputAuto {
		return p.format
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return config.InputCSV
	}
	return config.InputText
}

// ParseFile reads all records from path. config.Stdin reads standard input.
func (p *Parser) ParseFile(path string) ([]config.Record, error) {
	var records []config.Record
	err := p.ParseFileStream(path, func(r config.Record) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// ParseFileStream calls fn for every record in path. Reading stops at the
// first error returned by fn.
func (p *Parser) ParseFileStream(path string, fn func(config.Record) error) error {
	if path == config.Stdin {
		return p.parseStream(p.stdin, p.FormatFor(path), path, fn)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return p.parseStream(f, p.FormatFor(path), path, fn)
}

// Parse reads all records from r.
func (p *Parser) Parse(r io.Reader) ([]config.Record, error) {
	var records []config.Record
	err := p.ParseStream(r, func(rec config.Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// ParseStream calls fn for every record in r. Auto format reads text.
func (p *Parser) ParseStream(r io.Reader, fn func(config.Record) error) error {
	format := p.format
	if format == config.InputAuto {
		format = config.InputText
	}
	return p.parseStream(r, format, "", fn)
}

func (p *Parser) parseStream(r io.Reader, format config.InputFormat, source string, fn func(config.Record) error) error {
	if format == config.InputCSV {
		return p.parseCSV(r, source, fn)
	}
	return p.parseText(r, source, fn)
}

func (p *Parser) parseText(r io.Reader, source string, fn func(config.Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec := p.ParseLine(line)
		rec.Line = lineNum
		rec.Source = source
		if err := fn(rec); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// ParseLine splits a text line into a record without line information.
func (p *Parser) ParseLine(line string) config.Record {
	if key, content, ok := strings.Cut(line, p.delimiter); ok {
		return config.Record{Key: key, Contents: []string{content}}
	}
	return config.Record{Key: "", Contents: []string{line}}
}

// ParseRecord parses a single line in the given format. Lines read one at a
// time carry no header, so CSV lines are never skipped.
func (p *Parser) ParseRecord(line string, format config.InputFormat) (config.Record, error) {
	if format != config.InputCSV {
		return p.ParseLine(line), nil
	}

	fields, err := csv.NewReader(strings.NewReader(line)).Read()
	if err == io.EOF {
		return config.Record{}, ErrMissingKey
	}
	if err != nil {
		return config.Record{}, err
	}
	return recordFromFields(fields)
}

// Header reports whether the first CSV row is treated as a header.
func (p *Parser) Header() bool {
	return p.header
}

func (p *Parser) parseCSV(r io.Reader, source string, fn func(config.Record) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	skipHeader := p.header
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if skipHeader {
			skipHeader = false
			continue
		}

		line, _ := reader.FieldPos(0)
		rec, err := recordFromFields(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		rec.Line = line
		rec.Source = source
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func recordFromFields(fields []string) (config.Record, error) {
	if len(fields) == 0 {
		return config.Record{}, ErrMissingKey
	}
	return config.Record{Key: fields[0], Contents: fields[1:]}, nil
}
