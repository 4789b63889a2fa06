package ercot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"spp-forecast/internal/model"
)

// Column names the mapper requires in "fields".
const (
	fieldDeliveryDate        = "deliveryDate"
	fieldDeliveryHour        = "deliveryHour"
	fieldDeliveryInterval    = "deliveryInterval"
	fieldSettlementPoint     = "settlementPoint"
	fieldSettlementPointType = "settlementPointType"
	fieldPrice               = "settlementPointPrice"
	fieldDSTFlag             = "DSTFlag"
)

var requiredFields = []string{
	fieldDeliveryDate,
	fieldDeliveryHour,
	fieldDeliveryInterval,
	fieldSettlementPoint,
	fieldSettlementPointType,
	fieldPrice,
	fieldDSTFlag,
}

// Field describes one column of the "data" rows.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	DataType string `json:"dataType,omitempty"`
}

type rawPage struct {
	Meta   *model.PageMeta `json:"_meta"`
	Fields []Field         `json:"fields"`
	Data   [][]any         `json:"data"`
}

// DecodePage parses one data endpoint response body.
func DecodePage(body []byte) (model.Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw rawPage
	if err := dec.Decode(&raw); err != nil {
		return model.Page{}, &SchemaError{Reason: "body is not a JSON object: " + err.Error()}
	}
	if raw.Fields == nil || raw.Data == nil {
		return model.Page{}, &SchemaError{Reason: "missing data/fields"}
	}

	records, err := MapRecords(raw.Fields, raw.Data)
	if err != nil {
		return model.Page{}, err
	}
	page := model.Page{Records: records}
	if raw.Meta != nil {
		page.Meta = *raw.Meta
	}
	return page, nil
}

// MapRecords converts positional rows into records using the column order
// announced by fields, never a fixed ordinal layout.
func MapRecords(fields []Field, rows [][]any) ([]model.SettlementPriceRecord, error) {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	for _, name := range requiredFields {
		if _, ok := idx[name]; !ok {
			return nil, &SchemaError{Field: name, Reason: "missing in response"}
		}
	}

	out := make([]model.SettlementPriceRecord, 0, len(rows))
	for i, row := range rows {
		m := rowMapper{row: row, idx: idx, n: i}
		rec := model.SettlementPriceRecord{
			DeliveryDate:        m.str(fieldDeliveryDate),
			DeliveryHour:        m.integer(fieldDeliveryHour),
			DeliveryInterval:    m.integer(fieldDeliveryInterval),
			SettlementPoint:     m.str(fieldSettlementPoint),
			SettlementPointType: m.str(fieldSettlementPointType),
			Price:               m.number(fieldPrice),
			DSTFlag:             m.boolean(fieldDSTFlag),
		}
		if m.err != nil {
			return nil, m.err
		}
		out = append(out, rec)
	}
	return out, nil
}

// rowMapper keeps the first coercion failure so a row can be read in one
// pass.
type rowMapper struct {
	row []any
	idx map[string]int
	n   int
	err error
}

func (m *rowMapper) value(name string) (any, bool) {
	if m.err != nil {
		return nil, false
	}
	i := m.idx[name]
	if i >= len(m.row) {
		m.fail(name, "is out of range")
		return nil, false
	}
	return m.row[i], true
}

func (m *rowMapper) fail(name, reason string) {
	if m.err == nil {
		m.err = &SchemaError{Field: name, Reason: fmt.Sprintf("%s in row %d", reason, m.n)}
	}
}

func (m *rowMapper) str(name string) string {
	v, ok := m.value(name)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case nil:
		m.fail(name, "is null")
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func (m *rowMapper) number(name string) float64 {
	v, ok := m.value(name)
	if !ok {
		return 0
	}
	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		m.fail(name, fmt.Sprintf("has non-numeric value %v", v))
		return 0
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		m.fail(name, fmt.Sprintf("has non-numeric value %v", v))
		return 0
	}
	return f
}

func (m *rowMapper) integer(name string) int {
	f := m.number(name)
	if m.err != nil {
		return 0
	}
	if f != math.Trunc(f) {
		m.fail(name, fmt.Sprintf("has non-integer value %v", f))
		return 0
	}
	return int(f)
}

func (m *rowMapper) boolean(name string) bool {
	v, ok := m.value(name)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "y", "yes", "1":
			return true
		case "false", "n", "no", "0", "":
			return false
		}
	case json.Number:
		f, err := t.Float64()
		if err == nil {
			return f != 0
		}
	}
	m.fail(name, fmt.Sprintf("has non-boolean value %v", v))
	return false
}
