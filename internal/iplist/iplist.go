// Package iplist loads the master store-to-IP CSV and answers lookups for
// stores with no explicit address. The table is read-only after load, so no
// locking is needed.
package iplist

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"storewatch/internal/model"
)

const (
	colStoreID = "Store ID"
	colIP      = "IP Address"
)

// Table maps normalized store numbers to fallback addresses.
type Table struct {
	addrs map[string]string
}

// Empty returns a table with no entries; every lookup misses.
func Empty() *Table {
	return &Table{addrs: map[string]string{}}
}

// Load reads a CSV with "Store ID" and "IP Address" columns. A missing file
// yields an empty table rather than an error; the monitor still runs, stores
// without addresses just report offline.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the CSV stream. Rows without both columns are skipped.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Empty(), nil
		}
		return nil, err
	}

	idIdx, ipIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case colStoreID:
			idIdx = i
		case colIP:
			ipIdx = i
		}
	}
	if idIdx < 0 || ipIdx < 0 {
		return Empty(), nil
	}

	table := Empty()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= idIdx || len(row) <= ipIdx {
			continue
		}
		number := model.NormalizeNumber(row[idIdx])
		addr := strings.TrimSpace(row[ipIdx])
		if number == "" || addr == "" {
			continue
		}
		table.addrs[number] = addr
	}
	return table, nil
}

// Resolve returns the fallback address for a store number.
func (t *Table) Resolve(number string) (string, bool) {
	addr, ok := t.addrs[model.NormalizeNumber(number)]
	return addr, ok
}

// Len reports how many entries were loaded.
func (t *Table) Len() int {
	return len(t.addrs)
}
