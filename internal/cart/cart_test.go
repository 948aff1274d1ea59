package cart

import (
	"errors"
	"testing"
)

func TestAddItemInsertsLine(t *testing.T) {
	m := New()

	line, err := m.AddItem("Bananas", 2, 2.8, "kg")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if line.Quantity != 2 || line.UnitPrice != 2.8 || line.Unit != "kg" {
		t.Errorf("line = %+v", line)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestAddItemMergesByName(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 2, 2.8, "kg")

	// Same item, different casing: quantities accumulate, the captured
	// price stays.
	line, err := m.AddItem("  bananas ", 3, 9.99, "kg")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if line.Quantity != 5 {
		t.Errorf("Quantity = %v, want 5", line.Quantity)
	}
	if line.UnitPrice != 2.8 {
		t.Errorf("UnitPrice = %v, want the original 2.8", line.UnitPrice)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	m := New()

	if _, err := m.AddItem("Bananas", 0, 2.8, "kg"); err == nil {
		t.Error("expected error for zero quantity")
	}
	if _, err := m.AddItem("Bananas", -1, 2.8, "kg"); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestRemoveItem(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 2, 2.8, "kg")
	m.AddItem("Oat Milk", 1, 4.2, "litre")

	if err := m.RemoveItem("bananas"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}

	// The survivor is still addressable after reindexing.
	if err := m.RemoveItem("Oat Milk"); err != nil {
		t.Errorf("RemoveItem after reindex: %v", err)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	m := New()

	if err := m.RemoveItem("ghost"); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("err = %v, want ErrLineNotFound", err)
	}
}

func TestUpdateQuantity(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 2, 2.8, "kg")

	if err := m.UpdateQuantity("Bananas", 4); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if m.Lines()[0].Quantity != 4 {
		t.Errorf("Quantity = %v, want 4", m.Lines()[0].Quantity)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 2, 2.8, "kg")

	if err := m.UpdateQuantity("Bananas", 0); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestUpdateQuantityNotFound(t *testing.T) {
	m := New()

	if err := m.UpdateQuantity("ghost", 1); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("err = %v, want ErrLineNotFound", err)
	}
}

func TestTotalRoundsToCents(t *testing.T) {
	m := New()
	// 3 * 0.1 accumulates to 0.30000000000000004 in binary floats; the
	// total must come back as exactly 0.3.
	m.AddItem("Gum", 3, 0.1, "piece")

	if got := m.Total(); got != 0.3 {
		t.Errorf("Total = %v, want 0.3", got)
	}
}

func TestTotalSumsLines(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 2, 2.8, "kg")
	m.AddItem("Oat Milk", 1, 4.2, "litre")
	m.AddItem("Bananas", 3, 2.8, "kg")

	if got := m.Total(); got != 18.2 {
		t.Errorf("Total = %v, want 18.2", got)
	}
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 1, 2.8, "kg")
	m.AddItem("Oat Milk", 1, 4.2, "litre")
	m.AddItem("Bread", 1, 5.0, "loaf")

	want := []string{"Bananas", "Oat Milk", "Bread"}
	lines := m.Lines()
	for i, name := range want {
		if lines[i].Name != name {
			t.Errorf("line %d = %q, want %q", i, lines[i].Name, name)
		}
	}
}

func TestClear(t *testing.T) {
	m := New()
	m.AddItem("Bananas", 1, 2.8, "kg")

	m.Clear()

	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if m.Total() != 0 {
		t.Errorf("Total = %v, want 0", m.Total())
	}

	// The cart is reusable after clearing.
	if _, err := m.AddItem("Bananas", 1, 2.8, "kg"); err != nil {
		t.Errorf("AddItem after Clear: %v", err)
	}
}
