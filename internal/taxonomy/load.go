package taxonomy

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

//go:embed data/hazard_taxonomy.csv
var embeddedCSV []byte

var columns = []string{
	"structured_code",
	"legacy_structured_code",
	"label",
	"cluster_label",
	"family_label",
	"legacy_code",
	"database_key",
	"is_chapeau",
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table built from the embedded reference dataset. The
// build runs once per process; later calls return the same table or error.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(bytes.NewReader(embeddedCSV))
	})
	return defaultTable, defaultErr
}

// LoadFile builds a table from a CSV file on disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrTaxonomyBuild, path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load builds a table from CSV. The header must name every column exactly;
// column order is free.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty dataset", ErrTaxonomyBuild)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrTaxonomyBuild, err)
	}
	pos, err := columnPositions(header)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTaxonomyBuild, err)
		}
		line, _ := cr.FieldPos(0)
		e, err := parseRow(row, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrTaxonomyBuild, line, err)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", ErrTaxonomyBuild)
	}
	return newTable(entries)
}

func columnPositions(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := pos[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrTaxonomyBuild, name)
		}
		pos[name] = i
	}
	for _, c := range columns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrTaxonomyBuild, c)
		}
	}
	return pos, nil
}

func parseRow(row []string, pos map[string]int) (Entry, error) {
	field := func(name string) string { return strings.TrimSpace(row[pos[name]]) }

	e := Entry{
		StructuredCode:       field("structured_code"),
		LegacyStructuredCode: field("legacy_structured_code"),
		Label:                field("label"),
		ClusterLabel:         field("cluster_label"),
		FamilyLabel:          field("family_label"),
		LegacyCode:           field("legacy_code"),
		DatabaseKey:          field("database_key"),
	}

	if raw := field("is_chapeau"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Entry{}, fmt.Errorf("is_chapeau %q is not a boolean", raw)
		}
		e.Chapeau = b
	}

	checks := []struct {
		name  string
		value string
		match func(string) bool
	}{
		{"structured_code", e.StructuredCode, structuredRe.MatchString},
		{"legacy_structured_code", e.LegacyStructuredCode, structuredRe.MatchString},
		{"legacy_code", e.LegacyCode, legacyRe.MatchString},
		{"database_key", e.DatabaseKey, databaseRe.MatchString},
	}
	for _, c := range checks {
		if c.value != "" && !c.match(c.value) {
			return Entry{}, fmt.Errorf("%s %q does not match its pattern", c.name, c.value)
		}
	}

	switch {
	case e.Label == "":
		return Entry{}, errors.New("label is required")
	case e.StructuredCode == "" && e.LegacyCode == "" && e.DatabaseKey == "":
		return Entry{}, errors.New("row carries no hazard code")
	case e.StructuredCode == "" && e.LegacyStructuredCode != "":
		return Entry{}, errors.New("legacy_structured_code requires structured_code")
	case e.Chapeau && e.StructuredCode == "":
		return Entry{}, errors.New("chapeau row requires structured_code")
	}
	return e, nil
}
