package catalog

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Column names of the substance catalog.
const (
	ColumnName      = "name"
	ColumnWikiID    = "psychonaut_wiki_id"
	ColumnArchiveID = "erowid_id"
)

//go:embed psychedelics.csv
var DefaultCSV []byte

// Row is one substance with its identifiers on both sites.
type Row struct {
	Name      string
	WikiID    string
	ArchiveID string
}

// Catalog maps each column name to its values, aligned by row.
// It is read-only after Load.
type Catalog struct {
	Fields  []string
	Columns map[string][]string
}

// Load reads a catalog CSV file with a header row.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads catalog CSV data with a header row.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	c := &Catalog{Fields: header, Columns: make(map[string][]string, len(header))}
	for _, field := range header {
		c.Columns[field] = []string{}
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog row: %w", err)
		}
		for i, field := range header {
			c.Columns[field] = append(c.Columns[field], record[i])
		}
	}

	for _, required := range []string{ColumnWikiID, ColumnArchiveID} {
		if _, ok := c.Columns[required]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", required)
		}
	}
	return c, nil
}

// Len returns the number of substances.
func (c *Catalog) Len() int {
	if len(c.Fields) == 0 {
		return 0
	}
	return len(c.Columns[c.Fields[0]])
}

// WikiIDs returns the wiki identifiers in catalog order.
func (c *Catalog) WikiIDs() []string {
	return c.Columns[ColumnWikiID]
}

// ArchiveIDs returns the archive identifiers in catalog order.
func (c *Catalog) ArchiveIDs() []string {
	return c.Columns[ColumnArchiveID]
}

// Rows returns typed rows. A missing name column falls back to the wiki id.
func (c *Catalog) Rows() []Row {
	names := c.Columns[ColumnName]
	wiki := c.WikiIDs()
	archive := c.ArchiveIDs()

	rows := make([]Row, c.Len())
	for i := range rows {
		rows[i] = Row{WikiID: wiki[i], ArchiveID: archive[i], Name: wiki[i]}
		if names != nil {
			rows[i].Name = names[i]
		}
	}
	return rows
}

// Split returns the first n archive ids and the remaining ones.
func (c *Catalog) Split(n int) (first, rest []string) {
	ids := c.ArchiveIDs()
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n], ids[n:]
}
