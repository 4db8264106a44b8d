package model

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const (
	SelfName    = "あなた"
	SpouseName  = "配偶者"
	DefaultUnit = "世帯1"

	childPrefix = "子ども"
)

// ChildName returns the member name of the i-th child, counting from 1.
func ChildName(i int) string {
	return childPrefix + strconv.Itoa(i)
}

func childIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, childPrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 1 {
		return 0, false
	}
	return i, true
}

// Household is the request payload understood by the simulator: members
// keyed by name and benefit units keyed by unit name.
type Household struct {
	Members map[string]Person       `json:"世帯員"`
	Units   map[string]*BenefitUnit `json:"世帯"`
}

// NewHousehold returns the session default: the respondent alone in one
// benefit unit with every benefit pending for month.
func NewHousehold(month Period) Household {
	return Household{
		Members: map[string]Person{
			SelfName: {
				AttrBirthDate: PeriodValues{Eternity: Null},
				AttrIncome:    PeriodValues{month: Number(0)},
			},
		},
		Units: map[string]*BenefitUnit{
			DefaultUnit: NewBenefitUnit(month, SelfName),
		},
	}
}

func (h Household) Clone() Household {
	var out Household
	if h.Members != nil {
		out.Members = make(map[string]Person, len(h.Members))
		for name, p := range h.Members {
			out.Members[name] = p.Clone()
		}
	}
	if h.Units != nil {
		out.Units = make(map[string]*BenefitUnit, len(h.Units))
		for name, u := range h.Units {
			out.Units[name] = u.Clone()
		}
	}
	return out
}

func (h Household) Equal(o Household) bool {
	return reflect.DeepEqual(h, o)
}

// Validate checks that every guardian and child exists as a member.
func (h Household) Validate() error {
	for unitName, u := range h.Units {
		if u == nil {
			continue
		}
		for _, list := range [][]string{u.Guardians, u.Children} {
			for _, name := range list {
				if _, ok := h.Members[name]; !ok {
					return fmt.Errorf("%w: %s in %s", ErrDanglingMember, name, unitName)
				}
			}
		}
	}
	return nil
}

// Attribute returns the values stored for member's attribute. present is
// false when the member exists but the attribute container does not.
func (h Household) Attribute(member string, a Attribute) (values PeriodValues, present bool, err error) {
	p, ok := h.Members[member]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownMember, member)
	}
	values, present = p[a]
	return values, present, nil
}

// HasMember reports whether name is a key of Members.
func (h Household) HasMember(name string) bool {
	_, ok := h.Members[name]
	return ok
}

// ChildNames returns the child members ordered by index.
func (h Household) ChildNames() []string {
	type child struct {
		name string
		idx  int
	}
	var children []child
	for name := range h.Members {
		if i, ok := childIndex(name); ok {
			children = append(children, child{name, i})
		}
	}
	sort.Slice(children, func(a, b int) bool { return children[a].idx < children[b].idx })
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.name
	}
	return names
}

func (h *Household) unit() *BenefitUnit {
	if h.Units == nil {
		h.Units = make(map[string]*BenefitUnit)
	}
	u := h.Units[DefaultUnit]
	if u == nil {
		u = &BenefitUnit{Guardians: []string{}, Children: []string{}, Benefits: map[Benefit]PeriodValues{}}
		h.Units[DefaultUnit] = u
	}
	return u
}
