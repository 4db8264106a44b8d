package model

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidChildCount = errors.New("invalid child count")

func newDependent(month Period) Person {
	p := Person{
		AttrBirthDate: PeriodValues{Eternity: Null},
		AttrIncome:    PeriodValues{month: Number(0)},
	}
	p.Reset()
	return p
}

// SetChildren makes the household hold exactly n children named
// 子ども1..子どもn. When the count changes, every child's categorical
// attributes go back to the none code. It reports whether the count changed.
func (h *Household) SetChildren(n int, month Period) (bool, error) {
	if n < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidChildCount, n)
	}
	if h.Members == nil {
		h.Members = make(map[string]Person)
	}

	existing := h.ChildNames()
	changed := len(existing) != n

	for _, name := range existing {
		if i, _ := childIndex(name); i > n {
			delete(h.Members, name)
		}
	}

	children := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		name := ChildName(i)
		p, ok := h.Members[name]
		switch {
		case !ok:
			h.Members[name] = newDependent(month)
		case changed:
			p.Reset()
		}
		children = append(children, name)
	}

	h.unit().Children = children
	return changed, nil
}

// SetSpouse adds or removes the spouse and keeps the guardian list in step.
// It reports whether membership changed.
func (h *Household) SetSpouse(present bool, month Period) bool {
	if h.Members == nil {
		h.Members = make(map[string]Person)
	}
	u := h.unit()
	_, exists := h.Members[SpouseName]

	switch {
	case present && !exists:
		h.Members[SpouseName] = newDependent(month)
		if !slices.Contains(u.Guardians, SpouseName) {
			u.Guardians = append(u.Guardians, SpouseName)
		}
		return true
	case !present && exists:
		delete(h.Members, SpouseName)
		u.Guardians = slices.DeleteFunc(u.Guardians, func(n string) bool { return n == SpouseName })
		return true
	}
	return false
}

var certAttributes = map[ProfileField][]Attribute{
	FieldPhysicalCert:     {AttrPhysicalDisability},
	FieldMentalCert:       {AttrMentalDisability},
	FieldIntellectualCert: {AttrIntellectualDisability, AttrAiNoTecho},
}

// ApplyProfile mirrors the respondent's answers into the household. A flag
// that is not yes resets the matching grades of the respondent to the none
// code; a yes flag makes sure the grade container exists. Spouse and
// children answers drive SetSpouse and SetChildren.
func (h *Household) ApplyProfile(y Yourself, month Period) error {
	if h.Members == nil {
		h.Members = make(map[string]Person)
	}
	self, ok := h.Members[SelfName]
	if !ok {
		self = Person{AttrIncome: PeriodValues{month: Number(0)}}
		h.Members[SelfName] = self
		u := h.unit()
		if !slices.Contains(u.Guardians, SelfName) {
			u.Guardians = append([]string{SelfName}, u.Guardians...)
		}
	}

	if y.BirthDate != nil {
		self.Set(AttrBirthDate, Eternity, Code(*y.BirthDate))
	} else {
		self.Set(AttrBirthDate, Eternity, Null)
	}

	for _, f := range []ProfileField{FieldPhysicalCert, FieldMentalCert, FieldIntellectualCert} {
		for _, a := range certAttributes[f] {
			if !isTrue(y.Flag(f)) {
				self[a] = PeriodValues{Eternity: Code(NoneCode)}
				continue
			}
			if _, ok := self[a]; !ok {
				self[a] = PeriodValues{Eternity: Code(NoneCode)}
			}
		}
	}

	h.SetSpouse(isTrue(y.HasSpouse), month)
	if _, err := h.SetChildren(y.EffectiveChildCount(), month); err != nil {
		return err
	}
	return nil
}

// MergeResults copies benefit values from a simulated household into the
// matching units of h. Units or benefits absent from h are ignored.
func (h *Household) MergeResults(result Household) int {
	merged := 0
	for name, ru := range result.Units {
		u, ok := h.Units[name]
		if !ok || u == nil || ru == nil {
			continue
		}
		for b, values := range ru.Benefits {
			if _, ok := u.Benefits[b]; !ok {
				continue
			}
			u.Benefits[b] = values.Clone()
			merged++
		}
	}
	return merged
}
