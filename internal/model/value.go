package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindCode
	kindNumber
	kindBool
)

// Value is one period-scoped attribute value: a canonical code, a number,
// a boolean, or null when the value is unknown or not applicable.
type Value struct {
	kind valueKind
	code string
	num  float64
	b    bool
}

// Null is the zero Value.
var Null = Value{}

func Code(s string) Value    { return Value{kind: kindCode, code: s} }
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }
func Bool(b bool) Value      { return Value{kind: kindBool, b: b} }

func (v Value) IsNull() bool { return v.kind == kindNull }

func (v Value) AsCode() (string, bool) {
	return v.code, v.kind == kindCode
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == kindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == kindBool
}

func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) String() string {
	switch v.kind {
	case kindCode:
		return v.code
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindCode:
		return json.Marshal(v.code)
	case kindNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case kindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return fmt.Errorf("empty value")
	case bytes.Equal(data, []byte("null")):
		*v = Null
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode code: %w", err)
		}
		*v = Code(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		*v = Number(f)
	}
	return nil
}

// PeriodValues maps periods to the value in effect for each.
type PeriodValues map[Period]Value

func (pv PeriodValues) Clone() PeriodValues {
	if pv == nil {
		return nil
	}
	out := make(PeriodValues, len(pv))
	for k, v := range pv {
		out[k] = v
	}
	return out
}

func (pv PeriodValues) Equal(o PeriodValues) bool {
	if len(pv) != len(o) || (pv == nil) != (o == nil) {
		return false
	}
	for k, v := range pv {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
