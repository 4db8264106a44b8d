package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownBenefit   = errors.New("unknown benefit")
	ErrUnknownMember    = errors.New("unknown household member")
	ErrDanglingMember   = errors.New("benefit unit references missing member")
)

// Attribute names one per-person variable understood by the simulator.
type Attribute string

const (
	AttrBirthDate              Attribute = "誕生年月日"
	AttrIncome                 Attribute = "所得"
	AttrPhysicalDisability     Attribute = "身体障害者手帳等級認定"
	AttrIntellectualDisability Attribute = "療育手帳等級"
	AttrAiNoTecho              Attribute = "愛の手帳等級"
	AttrMentalDisability       Attribute = "精神障害者保健福祉手帳等級"
	AttrSchoolGrade            Attribute = "学年"
)

// NoneCode is the canonical "no certificate" code shared by every
// categorical attribute.
const NoneCode = "無"

var attributeCategorical = map[Attribute]bool{
	AttrBirthDate:              false,
	AttrIncome:                 false,
	AttrPhysicalDisability:     true,
	AttrIntellectualDisability: true,
	AttrAiNoTecho:              true,
	AttrMentalDisability:       true,
	AttrSchoolGrade:            false,
}

// CategoricalAttributes lists the enumerated attributes in form order.
func CategoricalAttributes() []Attribute {
	return []Attribute{
		AttrPhysicalDisability,
		AttrIntellectualDisability,
		AttrAiNoTecho,
		AttrMentalDisability,
	}
}

func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
	}
	return a, nil
}

func (a Attribute) Valid() bool {
	_, ok := attributeCategorical[a]
	return ok
}

func (a Attribute) Categorical() bool {
	return attributeCategorical[a]
}

// Person holds one household member's attributes.
type Person map[Attribute]PeriodValues

// NewPerson builds a Person from raw attribute names, rejecting unknown ones.
func NewPerson(raw map[string]PeriodValues) (Person, error) {
	p := make(Person, len(raw))
	for name, values := range raw {
		a, err := ParseAttribute(name)
		if err != nil {
			return nil, err
		}
		p[a] = values.Clone()
	}
	return p, nil
}

func (p *Person) UnmarshalJSON(data []byte) error {
	var raw map[string]PeriodValues
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	person, err := NewPerson(raw)
	if err != nil {
		return err
	}
	*p = person
	return nil
}

func (p Person) Clone() Person {
	if p == nil {
		return nil
	}
	out := make(Person, len(p))
	for a, values := range p {
		out[a] = values.Clone()
	}
	return out
}

// Set writes value for period, creating the attribute container if needed.
func (p Person) Set(a Attribute, period Period, v Value) {
	values := p[a]
	if values == nil {
		values = PeriodValues{}
		p[a] = values
	}
	values[period] = v
}

// Reset replaces every categorical attribute with the none code.
func (p Person) Reset() {
	for _, a := range CategoricalAttributes() {
		p[a] = PeriodValues{Eternity: Code(NoneCode)}
	}
}
