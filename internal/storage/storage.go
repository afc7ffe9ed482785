// Package storage persists the store list as JSON. The file format matches
// the stores.json the application has always written: a flat array of store
// objects.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"storewatch/internal/model"
)

// Load reads the store list from path. A missing file is a fresh install and
// loads as an empty list; a malformed file is reported so the caller can log
// it and start empty rather than crash.
func Load(path string) ([]model.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stores []model.Store
	if err := json.Unmarshal(data, &stores); err != nil {
		return nil, err
	}

	out := stores[:0]
	for _, s := range stores {
		s = s.Normalize()
		if s.Number == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Save writes the store list to path, creating parent directories as needed.
func Save(path string, stores []model.Store) error {
	data, err := json.MarshalIndent(stores, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
