package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeCatalog(t, "items.json", `[
		{"name": "Fresh Milk", "price": 3.5, "unit": "litre", "tags": ["dairy"]},
		{"name": "Oat Milk", "price": 4.2, "unit": "litre", "tags": ["dairy", "plant"]}
	]`)

	items, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "Fresh Milk" || items[0].Price != 3.5 {
		t.Errorf("first item = %+v", items[0])
	}
}

func TestLoadJSONRejectsUnnamedItem(t *testing.T) {
	path := writeCatalog(t, "bad.json", `[{"name": "", "price": 1}]`)

	if _, err := LoadJSON(path); err == nil {
		t.Error("expected error for item without a name")
	}
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := writeCatalog(t, "items.yaml", "name: nope")

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadAllPreservesSourceOrder(t *testing.T) {
	a := writeCatalog(t, "a.json", `[{"name": "Apples"}, {"name": "Bananas"}]`)
	b := writeCatalog(t, "b.json", `[{"name": "Carrots"}]`)

	items, err := LoadAll([]string{a, b})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	want := []string{"Apples", "Bananas", "Carrots"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("item %d = %q, want %q", i, items[i].Name, name)
		}
	}
}

func TestLoadAllEmptySourceList(t *testing.T) {
	items, err := LoadAll(nil)
	if err != nil {
		t.Fatalf("LoadAll(nil): %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestLoadAllFailsFast(t *testing.T) {
	a := writeCatalog(t, "a.json", `[{"name": "Apples"}]`)

	if _, err := LoadAll([]string{a, filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for a missing source")
	}
}
