// Package catalog loads the static product/FAQ catalog that lookup queries
// run against. Items are read once at startup and never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Item describes one product or FAQ answer.
type Item struct {
	Name     string   `json:"name"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags,omitempty"`
	Price    float64  `json:"price,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Category string   `json:"category,omitempty"`
}

// LoadJSON reads a catalog from a JSON array file.
func LoadJSON(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	for i, item := range items {
		if item.Name == "" {
			return nil, fmt.Errorf("catalog %s: item %d has no name", path, i)
		}
	}
	return items, nil
}

// LoadFile dispatches on extension: .json for structured catalogs, .pdf for
// published menu/FAQ sheets.
func LoadFile(path string) ([]Item, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".pdf":
		return LoadPDF(path)
	}
	return nil, fmt.Errorf("unsupported catalog source %s (want .json or .pdf)", path)
}

// LoadAll loads every source concurrently and concatenates the results in
// source order, so the catalog order (which breaks lookup-score ties) is
// independent of load timing.
func LoadAll(paths []string) ([]Item, error) {
	results := make([][]Item, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			items, err := LoadFile(p)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Item
	for _, items := range results {
		all = append(all, items...)
	}
	return all, nil
}
