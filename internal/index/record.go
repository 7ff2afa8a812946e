package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/obentoo/depsync/internal/common/semver"
)

// ErrMalformedRecord is returned when a line of an index file cannot be parsed
var ErrMalformedRecord = errors.New("malformed index record")

// Record is one published version of a crate
type Record struct {
	// Name is the crate name as published
	Name string
	// Version is the published version
	Version semver.Version
	// Yanked is true if the version was withdrawn from the registry
	Yanked bool
}

// IsPrerelease reports whether the record is a prerelease version
func (r Record) IsPrerelease() bool {
	return r.Version.IsPrerelease()
}

// ParseError describes a malformed line of an index file
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v: %v", e.Path, e.Line, ErrMalformedRecord, e.Err)
}

// Unwrap lets errors.Is match both ErrMalformedRecord and the cause
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// recordLine holds the fields of an index line this package uses
type recordLine struct {
	Name   string `json:"name"`
	Vers   string `json:"vers"`
	Yanked bool   `json:"yanked"`
}

// ParseRecords parses the content of an index file. Every non-empty line must
// be a valid record; the first malformed line fails the whole file.
func ParseRecords(path string, data []byte) ([]Record, error) {
	var records []Record

	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rl recordLine
		if err := json.Unmarshal(line, &rl); err != nil {
			return nil, &ParseError{Path: path, Line: i + 1, Err: err}
		}
		if rl.Vers == "" {
			return nil, &ParseError{Path: path, Line: i + 1, Err: errors.New("missing vers field")}
		}

		version, err := semver.Parse(rl.Vers)
		if err != nil {
			return nil, &ParseError{Path: path, Line: i + 1, Err: err}
		}

		records = append(records, Record{
			Name:    rl.Name,
			Version: version,
			Yanked:  rl.Yanked,
		})
	}

	return records, nil
}
