// Package limits holds the equity-threshold ruleset shared by account creation
// and account updates.
//
// An account carries a lower and an upper limit, each a (type, threshold) pair.
// After any successful create or update at least one side is complete, every
// percentage threshold lies in [0, 100], and when both sides share a type the
// upper threshold is not below the lower one.
package limits

import (
	"fmt"
	"math"

	"github.com/mehrbod2002/equitywatch/internal/apperr"

	"github.com/shopspring/decimal"
)

type EquityType string

const (
	Fixed      EquityType = "fixed"
	Percentage EquityType = "percentage"
)

func (t EquityType) Valid() bool {
	return t == Fixed || t == Percentage
}

// Limit is one stored side. A nil field is unset.
type Limit struct {
	Type      *EquityType
	Threshold *float64
}

func (l Limit) Complete() bool {
	return l.Type != nil && l.Threshold != nil
}

func (l Limit) Empty() bool {
	return l.Type == nil && l.Threshold == nil
}

// Clone returns a copy that shares no pointers with l.
func (l Limit) Clone() Limit {
	var c Limit
	if l.Type != nil {
		t := *l.Type
		c.Type = &t
	}
	if l.Threshold != nil {
		v := *l.Threshold
		c.Threshold = &v
	}
	return c
}

func (l Limit) partial() bool {
	return !l.Complete() && !l.Empty()
}

// Pair is the lower and upper limit of an account.
type Pair struct {
	Lower Limit
	Upper Limit
}

// Result is the validated limit state and which sides the patch changed.
type Result struct {
	Pair
	LowerChanged bool
	UpperChanged bool
}

type side int

const (
	lowerSide side = iota
	upperSide
)

func (s side) label() string {
	if s == lowerSide {
		return "Lower limit"
	}
	return "Upper limit"
}

const (
	msgCreateNeedsLimit = "At least one complete limit combination (EquityType + EquityThreshhold) or (UpperLimitEquityType + UpperLimitEquityThreshhold) is required"
	msgUpdateNeedsLimit = "At least one complete limit combination must remain after update"
	msgIncomplete       = "Equity type and threshold must be provided together for either lower or upper limits"
)

// Create validates the limits of a new account.
func Create(lower, upper Patch) (Result, error) {
	return evaluate(Pair{}, lower, upper, msgCreateNeedsLimit)
}

// Merge overlays lower and upper on the stored pair, side by side, and
// validates the merged state.
func Merge(current Pair, lower, upper Patch) (Result, error) {
	return evaluate(current, lower, upper, msgUpdateNeedsLimit)
}

func evaluate(current Pair, lowerPatch, upperPatch Patch, needsLimitMsg string) (Result, error) {
	lower, lowerConsidered, err := overlay(current.Lower, lowerPatch, lowerSide)
	if err != nil {
		return Result{}, err
	}
	upper, upperConsidered, err := overlay(current.Upper, upperPatch, upperSide)
	if err != nil {
		return Result{}, err
	}

	if !lower.Complete() && !upper.Complete() {
		return Result{}, apperr.Validation(needsLimitMsg)
	}
	if (lowerConsidered && lower.partial()) || (upperConsidered && upper.partial()) {
		return Result{}, apperr.Validation(msgIncomplete)
	}

	if err := checkThreshold(lower, lowerSide); err != nil {
		return Result{}, err
	}
	if err := checkThreshold(upper, upperSide); err != nil {
		return Result{}, err
	}

	if lower.Complete() && upper.Complete() && *lower.Type == *upper.Type {
		if below(*lower.Type, *lower.Threshold, *upper.Threshold) {
			return Result{}, apperr.Validation(fmt.Sprintf(
				"Upper limit equity threshold cannot be less than lower limit equity threshold when type is %s", *lower.Type))
		}
	}

	return Result{
		Pair:         Pair{Lower: lower, Upper: upper},
		LowerChanged: lowerConsidered && lowerPatch.Touched(),
		UpperChanged: upperConsidered && upperPatch.Touched(),
	}, nil
}

// overlay applies p over cur. A side is considered when it already holds data
// or the patch touches it; untouched empty sides stay out of validation.
func overlay(cur Limit, p Patch, s side) (Limit, bool, error) {
	if cur.Empty() && !p.Touched() {
		return Limit{}, false, nil
	}

	merged := cur
	if p.Type.Set {
		switch {
		case p.Type.Null:
			merged.Type = nil
		case p.Type.Value == "":
		default:
			t := EquityType(p.Type.Value)
			if !t.Valid() {
				return Limit{}, false, apperr.Validation(s.label() + " equity type must be either fixed or percentage")
			}
			merged.Type = &t
		}
	}
	if p.Threshold.Set {
		if p.Threshold.Null {
			merged.Threshold = nil
		} else {
			v := p.Threshold.Value
			merged.Threshold = &v
		}
	}
	return merged, true, nil
}

func checkThreshold(l Limit, s side) error {
	if !l.Complete() {
		return nil
	}
	v := *l.Threshold
	switch *l.Type {
	case Percentage:
		if math.IsNaN(v) || v < 0 || v > 100 {
			return apperr.Validation(s.label() + " equity threshold must be between 0 and 100 when type is percentage")
		}
	case Fixed:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.Validation(s.label() + " equity threshold must be a valid number")
		}
	}
	return nil
}

// below reports whether upper sits under lower. Fixed thresholds are money and
// compare as exact decimals.
func below(t EquityType, lower, upper float64) bool {
	if t == Fixed {
		return decimal.NewFromFloat(upper).LessThan(decimal.NewFromFloat(lower))
	}
	return upper < lower
}
