package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// missingQuantityText is what the tracking log shows for a record stored without a quantity.
const missingQuantityText = "undefined"

// Quantity holds a count exactly as it was entered. Numeric input keeps its JSON
// number form, anything else is kept as a string, and a record saved without a
// quantity keeps no value at all.
type Quantity struct {
	text    string
	literal bool
	present bool
}

// NumberQuantity builds a numeric quantity.
func NumberQuantity(v float64) Quantity {
	return Quantity{text: strconv.FormatFloat(v, 'f', -1, 64), literal: true, present: true}
}

// TextQuantity builds a quantity stored as a string.
func TextQuantity(s string) Quantity {
	return Quantity{text: s, present: true}
}

// ParseQuantity converts form input into a Quantity. Input that is a valid JSON
// number is stored as a number, everything else as text.
func ParseQuantity(input string) Quantity {
	trimmed := strings.TrimSpace(input)
	if isNumberLiteral(trimmed) {
		return Quantity{text: trimmed, literal: true, present: true}
	}
	return TextQuantity(input)
}

// IsZero reports whether the quantity is absent.
func (q Quantity) IsZero() bool { return !q.present }

// IsNumber reports whether the quantity is stored as a JSON number.
func (q Quantity) IsNumber() bool { return q.present && q.literal && isNumberLiteral(q.text) }

// String renders the quantity for display.
func (q Quantity) String() string {
	if !q.present {
		return missingQuantityText
	}
	return q.text
}

// Input returns the value used to seed an edit form; an absent quantity seeds an empty field.
func (q Quantity) Input() string {
	if !q.present {
		return ""
	}
	return q.text
}

// Value returns a float64 for numeric quantities and the raw string otherwise.
func (q Quantity) Value() any {
	if q.IsNumber() {
		if f, err := strconv.ParseFloat(q.text, 64); err == nil {
			return f
		}
	}
	if !q.present {
		return nil
	}
	return q.text
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.present {
		return []byte("null"), nil
	}
	if q.literal {
		return []byte(q.text), nil
	}
	return json.Marshal(q.text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*q = Quantity{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode quantity: %w", err)
		}
		*q = TextQuantity(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("decode quantity: unsupported value %s", data)
	default:
		// numbers and booleans are kept verbatim
		*q = Quantity{text: string(data), literal: true, present: true}
	}
	return nil
}

func isNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(s))
}
