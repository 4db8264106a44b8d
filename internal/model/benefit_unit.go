package model

import (
	"encoding/json"
	"fmt"
)

// Benefit names a household-level allowance computed by the simulator.
type Benefit string

const (
	BenefitChildAllowance           Benefit = "児童手当"
	BenefitChildSupportAllowance    Benefit = "児童扶養手当"
	BenefitSpecialChildSupport      Benefit = "特別児童扶養手当"
	BenefitDisabledChildUpbringing  Benefit = "障害児童育成手当"
	BenefitChildUpbringingAllowance Benefit = "児童育成手当"
)

const (
	keyGuardians = "保護者一覧"
	keyChildren  = "児童一覧"
)

// Benefits lists every benefit requested from the simulator.
func Benefits() []Benefit {
	return []Benefit{
		BenefitChildAllowance,
		BenefitChildSupportAllowance,
		BenefitSpecialChildSupport,
		BenefitDisabledChildUpbringing,
		BenefitChildUpbringingAllowance,
	}
}

func ParseBenefit(s string) (Benefit, error) {
	for _, b := range Benefits() {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBenefit, s)
}

// BenefitUnit groups guardians and children and carries per-period benefit
// amounts. Amounts are null until the simulator fills them in.
type BenefitUnit struct {
	Guardians []string
	Children  []string
	Benefits  map[Benefit]PeriodValues
}

// NewBenefitUnit returns a unit with every benefit pending for month.
func NewBenefitUnit(month Period, guardians ...string) *BenefitUnit {
	u := &BenefitUnit{
		Guardians: append([]string{}, guardians...),
		Children:  []string{},
		Benefits:  make(map[Benefit]PeriodValues),
	}
	u.ClearBenefits(month)
	return u
}

// ClearBenefits resets every benefit to null for month.
func (u *BenefitUnit) ClearBenefits(month Period) {
	if u.Benefits == nil {
		u.Benefits = make(map[Benefit]PeriodValues)
	}
	for _, b := range Benefits() {
		u.Benefits[b] = PeriodValues{month: Null}
	}
}

func (u *BenefitUnit) Clone() *BenefitUnit {
	if u == nil {
		return nil
	}
	out := &BenefitUnit{
		Guardians: cloneNames(u.Guardians),
		Children:  cloneNames(u.Children),
	}
	if u.Benefits != nil {
		out.Benefits = make(map[Benefit]PeriodValues, len(u.Benefits))
		for b, values := range u.Benefits {
			out.Benefits[b] = values.Clone()
		}
	}
	return out
}

func (u BenefitUnit) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Benefits)+2)
	out[keyGuardians] = nonNil(u.Guardians)
	out[keyChildren] = nonNil(u.Children)
	for b, values := range u.Benefits {
		out[string(b)] = values
	}
	return json.Marshal(out)
}

func (u *BenefitUnit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	unit := BenefitUnit{
		Guardians: []string{},
		Children:  []string{},
		Benefits:  make(map[Benefit]PeriodValues),
	}
	for key, msg := range raw {
		switch key {
		case keyGuardians:
			if err := json.Unmarshal(msg, &unit.Guardians); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		case keyChildren:
			if err := json.Unmarshal(msg, &unit.Children); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		default:
			b, err := ParseBenefit(key)
			if err != nil {
				return err
			}
			var values PeriodValues
			if err := json.Unmarshal(msg, &values); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			unit.Benefits[b] = values
		}
	}
	*u = unit
	return nil
}

func cloneNames(names []string) []string {
	if names == nil {
		return nil
	}
	return append([]string{}, names...)
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
