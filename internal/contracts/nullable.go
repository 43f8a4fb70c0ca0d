package contracts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float is a numeric field coming from an untrusted source.
// Valid is false when the value was absent, null, NaN or non-numeric.
type Float struct {
	V     float64
	Valid bool
}

// F wraps a known value.
func F(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{V: v, Valid: true}
}

// ParseFloat converts loosely typed input the way chain sources deliver it.
func ParseFloat(v interface{}) Float {
	switch x := v.(type) {
	case nil:
		return Float{}
	case Float:
		return x
	case float64:
		return F(x)
	case float32:
		return F(float64(x))
	case int:
		return F(float64(x))
	case int64:
		return F(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Float{}
		}
		return F(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Float{}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Float{}
		}
		return F(f)
	default:
		return Float{}
	}
}

// Or returns the value, or def when invalid.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.V
}

// Ptr returns nil for invalid values.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.V
	return &v
}

// UnmarshalJSON never fails on bad data; it yields an invalid Float instead.
func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = Float{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = Float{}
			return nil
		}
		*f = ParseFloat(s)
		return nil
	}
	if b[0] == '{' {
		// Yahoo quoteSummary 형식: {"raw": 1.23, "fmt": "1.23"}
		var wrapped struct {
			Raw json.RawMessage `json:"raw"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil || len(wrapped.Raw) == 0 {
			*f = Float{}
			return nil
		}
		return f.UnmarshalJSON(wrapped.Raw)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*f = Float{}
		return nil
	}
	*f = F(v)
	return nil
}

// MarshalJSON writes null for invalid values.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.V)
}
