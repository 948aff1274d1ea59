package schema

import (
	"fmt"
	"strings"
)

// milkRequired drinks refuse a milk value of "none".
var milkRequired = map[string]bool{
	"latte":      true,
	"cappuccino": true,
	"flat white": true,
	"mocha":      true,
}

// CoffeeOrder is the barista schema: drink type, size, milk, extras, and the
// customer's name. Espresso asks for shot size instead of a cup size, and
// milk-based drinks refuse "none" for milk.
func CoffeeOrder() *Schema {
	return MustNew("coffee_order",
		[]Field{
			{Name: "drinkType", Label: "drink type", Required: true, Kind: KindString, Lowercase: true},
			{
				Name: "size", Label: "size", Required: true, Kind: KindString, Lowercase: true,
				DynamicLabel: func(current map[string]any) string {
					if drink, _ := current["drinkType"].(string); drink == "espresso" {
						return "shot size (single or double)"
					}
					return "size"
				},
			},
			{Name: "milk", Label: "milk preference", Required: true, Kind: KindString, Lowercase: true},
			{Name: "extras", Label: "extras", Kind: KindList},
			{Name: "name", Label: "name", Required: true, Kind: KindString},
		},
		Rule{
			Field: "milk",
			Check: func(value any, current map[string]any) *Rejection {
				milk, _ := value.(string)
				milk = strings.ToLower(strings.TrimSpace(milk))
				if milk != "none" && milk != "no" {
					return nil
				}
				drink, _ := current["drinkType"].(string)
				if !milkRequired[drink] {
					return nil
				}
				return &Rejection{
					Rule:        fmt.Sprintf("a %s requires milk.", drink),
					Alternative: "Choose a milk type, or switch to an americano or espresso.",
				}
			},
		},
	)
}

// LeadCapture collects contact details for a sales follow-up.
func LeadCapture() *Schema {
	return MustNew("lead_capture",
		[]Field{
			{Name: "name", Label: "full name", Required: true, Kind: KindString},
			{Name: "company", Label: "company", Required: true, Kind: KindString},
			{Name: "email", Label: "email address", Required: true, Kind: KindString, Lowercase: true},
			{Name: "interest", Label: "product interest", Required: true, Kind: KindString},
			{Name: "notes", Label: "notes", Kind: KindString},
		},
		Rule{
			Field: "email",
			Check: func(value any, _ map[string]any) *Rejection {
				email, _ := value.(string)
				if strings.Count(email, "@") == 1 && !strings.HasPrefix(email, "@") && !strings.HasSuffix(email, "@") {
					return nil
				}
				return &Rejection{
					Rule:        "that doesn't look like a valid email address.",
					Alternative: "Ask for an address in the form name@example.com.",
				}
			},
		},
	)
}

// WellnessCheckIn records a daily wellness check-in.
func WellnessCheckIn() *Schema {
	return MustNew("wellness_checkin",
		[]Field{
			{Name: "mood", Label: "mood", Required: true, Kind: KindString, Lowercase: true},
			{Name: "sleepHours", Label: "hours of sleep", Required: true, Kind: KindNumber},
			{Name: "energy", Label: "energy level", Required: true, Kind: KindString, Lowercase: true},
			{Name: "notes", Label: "anything else", Kind: KindString},
		},
		Rule{
			Field: "sleepHours",
			Check: func(value any, _ map[string]any) *Rejection {
				hours, ok := toFloat(value)
				if ok && hours >= 0 && hours <= 24 {
					return nil
				}
				return &Rejection{
					Rule:        "sleep hours must be between 0 and 24.",
					Alternative: "Ask how many hours they slept last night.",
				}
			},
		},
	)
}

// GroceryOrder captures the delivery details that accompany a cart.
func GroceryOrder() *Schema {
	return MustNew("grocery_order",
		[]Field{
			{Name: "name", Label: "name", Required: true, Kind: KindString},
			{Name: "address", Label: "delivery address", Required: true, Kind: KindString},
			{Name: "deliveryWindow", Label: "delivery window", Required: true, Kind: KindString, Lowercase: true},
		},
	)
}

// Preset returns a built-in schema by name.
func Preset(name string) (*Schema, error) {
	switch name {
	case "coffee_order":
		return CoffeeOrder(), nil
	case "lead_capture":
		return LeadCapture(), nil
	case "wellness_checkin":
		return WellnessCheckIn(), nil
	case "grocery_order":
		return GroceryOrder(), nil
	}
	return nil, fmt.Errorf("unknown schema preset %q", name)
}

// PresetNames lists the built-in schema names.
func PresetNames() []string {
	return []string{"coffee_order", "lead_capture", "wellness_checkin", "grocery_order"}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
