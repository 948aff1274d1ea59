// Package cart tracks the line items of one grocery-ordering session.
package cart

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrLineNotFound signals that the named item has no line in the cart.
// Removal of an absent item is a no-op at the cart level; the caller decides
// how to phrase it.
var ErrLineNotFound = errors.New("item not in cart")

// Line is a catalog item reference with a quantity and the unit price
// captured at add time.
type Line struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Unit      string  `json:"unit"`
}

// Manager holds the cart of a single session. Like the record store it is
// exclusively owned by one session and needs no locking.
type Manager struct {
	lines []Line           // insertion order
	index map[string]int   // normalized name -> position in lines
}

// New creates an empty cart.
func New() *Manager {
	return &Manager{index: make(map[string]int)}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddItem merges into an existing line (quantity accumulates, the captured
// unit price stays) or inserts a new one. Quantity must be positive.
func (m *Manager) AddItem(name string, qty, unitPrice float64, unit string) (Line, error) {
	if qty <= 0 {
		return Line{}, fmt.Errorf("quantity must be positive, got %v", qty)
	}
	if unitPrice < 0 {
		return Line{}, fmt.Errorf("unit price must not be negative, got %v", unitPrice)
	}

	k := key(name)
	if pos, ok := m.index[k]; ok {
		m.lines[pos].Quantity += qty
		return m.lines[pos], nil
	}

	line := Line{Name: name, Quantity: qty, UnitPrice: unitPrice, Unit: unit}
	m.lines = append(m.lines, line)
	m.index[k] = len(m.lines) - 1
	return line, nil
}

// RemoveItem drops the named line. Returns ErrLineNotFound if absent; never
// panics.
func (m *Manager) RemoveItem(name string) error {
	pos, ok := m.index[key(name)]
	if !ok {
		return ErrLineNotFound
	}
	m.removeAt(pos)
	return nil
}

// UpdateQuantity sets the line's quantity; a non-positive quantity removes
// the line.
func (m *Manager) UpdateQuantity(name string, qty float64) error {
	pos, ok := m.index[key(name)]
	if !ok {
		return ErrLineNotFound
	}
	if qty <= 0 {
		m.removeAt(pos)
		return nil
	}
	m.lines[pos].Quantity = qty
	return nil
}

// Total sums price × quantity across all lines, rounded half-up to two
// decimal places.
func (m *Manager) Total() float64 {
	sum := 0.0
	for _, l := range m.lines {
		sum += l.UnitPrice * l.Quantity
	}
	return math.Round(sum*100) / 100
}

// Lines returns the current lines in insertion order.
func (m *Manager) Lines() []Line {
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}

// Len reports the number of lines.
func (m *Manager) Len() int { return len(m.lines) }

// Clear empties the cart. Called after a successful order placement.
func (m *Manager) Clear() {
	m.lines = nil
	m.index = make(map[string]int)
}

func (m *Manager) removeAt(pos int) {
	removed := m.lines[pos]
	m.lines = append(m.lines[:pos], m.lines[pos+1:]...)
	delete(m.index, key(removed.Name))
	for i := pos; i < len(m.lines); i++ {
		m.index[key(m.lines[i].Name)] = i
	}
}
