package csvinput

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Required column names. Matching is case-insensitive.
const (
	ColumnPrincipalName = "UserPrincipalName"
	ColumnCountry       = "Country"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Row is one data row of the input file.
type Row struct {
	// Line is the 1-based record number, counting the header as 1.
	Line          int
	PrincipalName string
	Country       string
	// Fields holds every column of the row keyed by header name.
	Fields map[string]string
}

// Warning is a non-fatal problem with a single row.
type Warning struct {
	Line    int
	Message string
}

type File struct {
	Path     string
	Rows     []Row
	Warnings []Warning
}

// ReadFile reads and parses the CSV file at path.
func ReadFile(path string, delimiter rune) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Read(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Read parses CSV from r. UTF-8 and BOM-marked UTF-16 input are accepted,
// and a leading "#TYPE" line as written by PowerShell's Export-Csv is
// ignored.
func Read(r io.Reader, delimiter rune) (*File, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	data = skipTypeLine(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	upnIdx, countryIdx := -1, -1
	for i, h := range headers {
		switch {
		case strings.EqualFold(h, ColumnPrincipalName):
			upnIdx = i
		case strings.EqualFold(h, ColumnCountry):
			countryIdx = i
		}
	}
	var missing []string
	if upnIdx < 0 {
		missing = append(missing, ColumnPrincipalName)
	}
	if countryIdx < 0 {
		missing = append(missing, ColumnCountry)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	file := &File{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			file.Warnings = append(file.Warnings, Warning{Line: line, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := Row{Line: line, Fields: make(map[string]string, len(headers))}
		for i, h := range headers {
			if i < len(record) {
				row.Fields[h] = record[i]
			} else {
				row.Fields[h] = ""
			}
		}
		row.PrincipalName = strings.TrimSpace(row.Fields[headers[upnIdx]])
		row.Country = strings.TrimSpace(row.Fields[headers[countryIdx]])
		file.Rows = append(file.Rows, row)
	}

	return file, nil
}

func skipTypeLine(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("#TYPE")) {
		return data
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[i+1:]
	}
	return nil
}
