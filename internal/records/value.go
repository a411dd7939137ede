package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies how a field value is typed.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindCurrency
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindCurrency:
		return "currency"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single typed cell value. Currency is kept in integer cents so
// that equality is exact. Value is comparable with ==.
type Value struct {
	Kind  Kind
	Text  string
	Num   float64
	Cents int64
}

// Text builds a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number builds a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Currency builds a currency value from cents.
func Currency(cents int64) Value { return Value{Kind: KindCurrency, Cents: cents} }

// String formats the value for display and for edit prompts.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindCurrency:
		sign := ""
		cents := v.Cents
		if cents < 0 {
			sign = "-"
			cents = -cents
		}
		return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
	default:
		return v.Text
	}
}

// ParseValue converts user input into a value of the given kind.
func ParseValue(kind Kind, input string) (Value, error) {
	trimmed := strings.TrimSpace(input)
	switch kind {
	case KindText:
		return Text(trimmed), nil
	case KindNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", input, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("parse number %q: not a finite number", input)
		}
		return Number(f), nil
	case KindCurrency:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(trimmed)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse currency %q: %w", input, err)
		}
		cents, err := centsOf(f)
		if err != nil {
			return Value{}, fmt.Errorf("parse currency %q: %w", input, err)
		}
		return Currency(cents), nil
	default:
		return Value{}, fmt.Errorf("unknown kind %v", kind)
	}
}

// MarshalJSON encodes text as a JSON string and numbers/currency as JSON
// numbers (currency in whole units).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindCurrency:
		return []byte(strconv.FormatFloat(float64(v.Cents)/100, 'f', 2, 64)), nil
	default:
		return json.Marshal(v.Text)
	}
}

// decodeValue reads a raw JSON value as the given kind.
func decodeValue(kind Kind, raw json.RawMessage) (Value, error) {
	switch kind {
	case KindText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("decode text: %w", err)
		}
		return Text(s), nil
	case KindNumber:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("decode number: %w", err)
		}
		return Number(f), nil
	case KindCurrency:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("decode currency: %w", err)
		}
		cents, err := centsOf(f)
		if err != nil {
			return Value{}, fmt.Errorf("decode currency: %w", err)
		}
		return Currency(cents), nil
	default:
		return Value{}, fmt.Errorf("unknown kind %v", kind)
	}
}

// centsOf converts whole units to cents, refusing amounts int64 cannot hold.
func centsOf(f float64) (int64, error) {
	c := math.Round(f * 100)
	if math.IsNaN(c) || c >= math.MaxInt64 || c < math.MinInt64 {
		return 0, fmt.Errorf("amount %v out of range", f)
	}
	return int64(c), nil
}
