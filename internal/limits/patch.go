package limits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OptString is a JSON string field that remembers whether it was present and
// whether it was an explicit null.
type OptString struct {
	Set   bool
	Null  bool
	Value string
}

func (o *OptString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string, got %s", data)
	}
	o.Value = s
	return nil
}

// OptNumber is a JSON threshold field. Numbers and numeric strings are accepted;
// a string that does not parse yields NaN so the ruleset can report it.
type OptNumber struct {
	Set   bool
	Null  bool
	Value float64
}

func (o *OptNumber) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Null = true
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			v = math.NaN()
		}
		o.Value = v
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected number, got %s", data)
	}
	o.Value = v
	return nil
}

// Num returns a present OptNumber holding v.
func Num(v float64) OptNumber {
	return OptNumber{Set: true, Value: v}
}

// Str returns a present OptString holding s.
func Str(s string) OptString {
	return OptString{Set: true, Value: s}
}

// Patch is the caller-supplied part of one limit side.
type Patch struct {
	Type      OptString
	Threshold OptNumber
}

func (p Patch) Touched() bool {
	return p.Type.Set || p.Threshold.Set
}
