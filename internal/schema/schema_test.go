package schema

import (
	"strings"
	"testing"
)

func TestNewRejectsDuplicateFields(t *testing.T) {
	_, err := New("dup", []Field{
		{Name: "a", Label: "a", Required: true, Kind: KindString},
		{Name: "a", Label: "a again", Kind: KindString},
	})
	if err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestNewRejectsEmptyFieldName(t *testing.T) {
	_, err := New("bad", []Field{{Name: "", Label: "x", Kind: KindString}})
	if err == nil {
		t.Fatal("expected error for empty field name")
	}
}

func TestFieldsPreserveDeclarationOrder(t *testing.T) {
	s := CoffeeOrder()

	want := []string{"drinkType", "size", "milk", "extras", "name"}
	fields := s.Fields()
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(fields), len(want))
	}
	for i, f := range fields {
		if f.Name != want[i] {
			t.Errorf("field %d = %q, want %q", i, f.Name, want[i])
		}
	}
}

func TestCoffeeOrderMilkRuleRejectsRefusal(t *testing.T) {
	s := CoffeeOrder()

	current := map[string]any{"drinkType": "latte"}
	rej := s.Validate("milk", "none", current)
	if rej == nil {
		t.Fatal("expected rejection for milk=none on a latte")
	}
	if rej.Alternative == "" {
		t.Error("rejection should carry an alternative suggestion")
	}
}

func TestCoffeeOrderMilkAcceptedForLatte(t *testing.T) {
	s := CoffeeOrder()

	current := map[string]any{"drinkType": "latte"}
	if rej := s.Validate("milk", "oat", current); rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestCoffeeOrderDynamicSizeLabel(t *testing.T) {
	s := CoffeeOrder()

	f, ok := s.Field("size")
	if !ok {
		t.Fatal("size field not found")
	}

	label := f.LabelFor(map[string]any{"drinkType": "espresso"})
	if !strings.Contains(label, "single or double") {
		t.Errorf("espresso size label = %q, want shot wording", label)
	}

	label = f.LabelFor(map[string]any{"drinkType": "latte"})
	if strings.Contains(label, "single or double") {
		t.Errorf("latte size label = %q, should not use shot wording", label)
	}
}

func TestLeadCaptureEmailRule(t *testing.T) {
	s := LeadCapture()

	if rej := s.Validate("email", "not-an-email", nil); rej == nil {
		t.Error("expected rejection for address without @")
	}
	if rej := s.Validate("email", "sam@example.com", nil); rej != nil {
		t.Errorf("unexpected rejection for valid address: %v", rej)
	}
}

func TestWellnessSleepHoursRange(t *testing.T) {
	s := WellnessCheckIn()

	if rej := s.Validate("sleepHours", 25.0, nil); rej == nil {
		t.Error("expected rejection for 25 hours")
	}
	if rej := s.Validate("sleepHours", -1.0, nil); rej == nil {
		t.Error("expected rejection for negative hours")
	}
	if rej := s.Validate("sleepHours", 7.5, nil); rej != nil {
		t.Errorf("unexpected rejection for 7.5 hours: %v", rej)
	}
}

func TestPresetLookup(t *testing.T) {
	for _, name := range PresetNames() {
		s, err := Preset(name)
		if err != nil {
			t.Errorf("Preset(%q): %v", name, err)
			continue
		}
		if s.Name != name {
			t.Errorf("Preset(%q).Name = %q", name, s.Name)
		}
	}

	if _, err := Preset("no_such_schema"); err == nil {
		t.Error("expected error for unknown preset")
	}
}
