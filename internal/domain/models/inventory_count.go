package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Persisted key names of an InventoryCount.
const (
	KeyTagNumber   = "Tag #"
	KeyCategory    = "Category"
	KeyPartNumber  = "Part #"
	KeyDescription = "Description"
	KeyLocation    = "Location"
	KeyUOM         = "UOM"
	KeyQuantity    = "Quantity"
	KeyNotes       = "Notes"
	KeyTimestamp   = "Timestamp"
	KeyID          = "ID"
)

// knownKeys is the order used for keys a record gains in memory.
var knownKeys = []string{
	KeyTagNumber, KeyCategory, KeyPartNumber, KeyDescription, KeyLocation,
	KeyUOM, KeyQuantity, KeyNotes, KeyTimestamp, KeyID,
}

// InventoryCount is one physical count captured by the data-entry surface.
//
// A decoded record remembers the keys it was stored with, in order, including
// keys holding empty values and keys this type does not model. Encoding writes
// them back the same way, so a record survives a load and save untouched apart
// from the fields that were edited.
type InventoryCount struct {
	TagNumber     string
	Category      string
	PartNumber    string
	Description   string
	Location      string
	UnitOfMeasure string
	Quantity      Quantity
	Notes         string
	Timestamp     int64 // creation instant, ms since epoch
	ID            string

	layout  []string
	opaque  map[string]json.RawMessage
	localID bool
}

// AssignLocalID gives a record stored without an identity an ID that is used
// in memory only and never encoded.
func (c *InventoryCount) AssignLocalID(id string) {
	c.ID = id
	c.localID = true
}

// Keys lists the record's keys: the stored ones in stored order, then keys
// populated in memory.
func (c InventoryCount) Keys() []string {
	keys := slices.Clone(c.layout)
	for _, key := range knownKeys {
		if !slices.Contains(keys, key) && c.populated(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *InventoryCount) textField(key string) *string {
	switch key {
	case KeyTagNumber:
		return &c.TagNumber
	case KeyCategory:
		return &c.Category
	case KeyPartNumber:
		return &c.PartNumber
	case KeyDescription:
		return &c.Description
	case KeyLocation:
		return &c.Location
	case KeyUOM:
		return &c.UnitOfMeasure
	case KeyNotes:
		return &c.Notes
	case KeyID:
		return &c.ID
	}
	return nil
}

func (c InventoryCount) populated(key string) bool {
	switch key {
	case KeyQuantity:
		return !c.Quantity.IsZero()
	case KeyTimestamp:
		return c.Timestamp != 0
	case KeyID:
		return c.ID != "" && !c.localID
	}
	if p := c.textField(key); p != nil {
		return *p != ""
	}
	return false
}

// claim marks keys as present, so they are encoded even when empty.
func (c *InventoryCount) claim(keys ...string) {
	layout := c.Keys()
	for _, key := range keys {
		if !slices.Contains(layout, key) {
			layout = append(layout, key)
		}
	}
	c.layout = layout

	for _, key := range keys {
		if _, ok := c.opaque[key]; ok {
			c.opaque = maps.Clone(c.opaque)
			for _, k := range keys {
				delete(c.opaque, k)
			}
			return
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (c InventoryCount) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.Keys() {
		value, err := c.encodeValue(key)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(key))
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c InventoryCount) encodeValue(key string) ([]byte, error) {
	if raw, ok := c.opaque[key]; ok {
		return raw, nil
	}
	switch key {
	case KeyQuantity:
		return c.Quantity.MarshalJSON()
	case KeyTimestamp:
		return strconv.AppendInt(nil, c.Timestamp, 10), nil
	case KeyID:
		if c.localID {
			return encodeString(""), nil
		}
	}
	if p := c.textField(key); p != nil {
		return encodeString(*p), nil
	}
	return nil, errors.New("no value")
}

// UnmarshalJSON implements json.Unmarshaler. Values of modeled keys that do
// not have the expected JSON type are kept verbatim.
func (c *InventoryCount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode inventory count: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode inventory count: expected object, got %v", tok)
	}

	var out InventoryCount
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode inventory count: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode inventory count %q: %w", key, err)
		}
		out.decodeKey(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode inventory count: %w", err)
	}

	*c = out
	return nil
}

func (c *InventoryCount) decodeKey(key string, raw json.RawMessage) {
	if !slices.Contains(c.layout, key) {
		c.layout = append(c.layout, key)
	}
	delete(c.opaque, key)
	if c.decodeKnown(key, raw) {
		return
	}
	if c.opaque == nil {
		c.opaque = make(map[string]json.RawMessage)
	}
	c.opaque[key] = raw
}

func (c *InventoryCount) decodeKnown(key string, raw json.RawMessage) bool {
	switch key {
	case KeyQuantity:
		var q Quantity
		if err := json.Unmarshal(raw, &q); err != nil {
			return false
		}
		c.Quantity = q
		return true
	case KeyTimestamp:
		var ts int64
		if bytes.Equal(raw, []byte("null")) {
			return false
		}
		if err := json.Unmarshal(raw, &ts); err != nil {
			return false
		}
		c.Timestamp = ts
		return true
	}

	p := c.textField(key)
	if p == nil || len(raw) == 0 || raw[0] != '"' {
		return false
	}
	return json.Unmarshal(raw, p) == nil
}

// encodeString encodes s as a JSON string without HTML escaping.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Field is a named column value of an InventoryCount.
type Field struct {
	Name  string
	Value any
}

// Fields lists the record's values in key order, including empty ones. The
// identity is internal and never listed. Values this type does not model are
// decoded generically; objects and arrays are given as their JSON text.
func (c InventoryCount) Fields() []Field {
	keys := c.Keys()
	fields := make([]Field, 0, len(keys))
	for _, key := range keys {
		if key == KeyID {
			continue
		}
		fields = append(fields, Field{Name: key, Value: c.fieldValue(key)})
	}
	return fields
}

func (c InventoryCount) fieldValue(key string) any {
	if raw, ok := c.opaque[key]; ok {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return string(trimmed)
		}
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return string(trimmed)
		}
		return v
	}
	switch key {
	case KeyQuantity:
		return c.Quantity.Value()
	case KeyTimestamp:
		return c.Timestamp
	}
	if p := c.textField(key); p != nil {
		return *p
	}
	return nil
}

// Predicates are the free-text filters applied to the tracking log.
type Predicates struct {
	Tag         string `form:"tag" json:"tag"`
	Category    string `form:"category" json:"category"`
	PartNumber  string `form:"part" json:"part"`
	Description string `form:"description" json:"description"`
}

// Active reports whether any predicate restricts the view.
func (p Predicates) Active() bool {
	return p.Tag != "" || p.Category != "" || p.PartNumber != "" || p.Description != ""
}

// Matches reports whether every predicate is a case-insensitive substring of
// the corresponding record field. Missing fields compare as empty strings.
func (p Predicates) Matches(c InventoryCount) bool {
	return containsFold(c.TagNumber, p.Tag) &&
		containsFold(c.Category, p.Category) &&
		containsFold(c.PartNumber, p.PartNumber) &&
		containsFold(c.Description, p.Description)
}

func containsFold(field, predicate string) bool {
	if predicate == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(predicate))
}

// Draft holds the pending values of a row being edited.
type Draft struct {
	Location      string
	UnitOfMeasure string
	Quantity      Quantity
	Notes         string
}

// DraftFrom seeds a draft from the stored record.
func DraftFrom(c InventoryCount) Draft {
	return Draft{
		Location:      c.Location,
		UnitOfMeasure: c.UnitOfMeasure,
		Quantity:      c.Quantity,
		Notes:         c.Notes,
	}
}

// Apply replaces the editable fields of c with the draft values.
func (d Draft) Apply(c *InventoryCount) {
	c.claim(KeyLocation, KeyUOM, KeyQuantity, KeyNotes)
	c.Location = d.Location
	c.UnitOfMeasure = d.UnitOfMeasure
	c.Quantity = d.Quantity
	c.Notes = d.Notes
}

// Catalog holds the closed-choice lists offered by the tracking log.
type Catalog struct {
	Categories []string `yaml:"categories"`
	UOMs       []string `yaml:"uoms"`
	Locations  []string `yaml:"locations"`
}
