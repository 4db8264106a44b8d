package field

import (
	"fmt"
	"strconv"

	"github.com/dukerupert/benefitform/internal/model"
)

// Choice pairs the label shown to the user with the canonical code sent to
// the simulator.
type Choice struct {
	Label string
	Code  model.Value
}

// Domain is a closed, ordered list of choices. Index 0 is the none/unset
// entry and the default selection.
type Domain struct {
	Name    string
	Choices []Choice
}

// NewDomain builds a domain of code strings from (label, code) pairs.
func NewDomain(name string, pairs ...[2]string) Domain {
	choices := make([]Choice, len(pairs))
	for i, p := range pairs {
		choices[i] = Choice{Label: p[0], Code: model.Code(p[1])}
	}
	return Domain{Name: name, Choices: choices}
}

func (d Domain) Len() int { return len(d.Choices) }

// IndexOf returns the index whose code equals v, or 0 when none does.
func (d Domain) IndexOf(v model.Value) int {
	for i, c := range d.Choices {
		if c.Code.Equal(v) {
			return i
		}
	}
	return 0
}

func (d Domain) Code(i int) (model.Value, error) {
	if i < 0 || i >= len(d.Choices) {
		return model.Null, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(d.Choices))
	}
	return d.Choices[i].Code, nil
}

func (d Domain) CodeFor(label string) (model.Value, bool) {
	for _, c := range d.Choices {
		if c.Label == label {
			return c.Code, true
		}
	}
	return model.Null, false
}

func (d Domain) LabelFor(code model.Value) (string, bool) {
	for _, c := range d.Choices {
		if c.Code.Equal(code) {
			return c.Label, true
		}
	}
	return "", false
}

// Labels differ from codes where the simulator's variable names cannot
// start with a digit.
var (
	PhysicalDisability = NewDomain("身体障害者手帳",
		[2]string{"", "無"},
		[2]string{"1級", "一級"},
		[2]string{"2級", "二級"},
		[2]string{"3級", "三級"},
	)
	IntellectualDisability = NewDomain("愛の手帳（療育手帳）",
		[2]string{"なし", "無"},
		[2]string{"A", "A"},
		[2]string{"B", "B"},
	)
	AiNoTecho = NewDomain("愛の手帳",
		[2]string{"なし", "無"},
		[2]string{"1度", "一度"},
		[2]string{"2度", "二度"},
		[2]string{"3度", "三度"},
		[2]string{"4度", "四度"},
	)
	MentalDisability = NewDomain("精神障害者保健福祉手帳",
		[2]string{"なし", "無"},
		[2]string{"1級", "一級"},
		[2]string{"2級", "二級"},
		[2]string{"3級", "三級"},
	)
)

// ForAttribute returns the domain of a categorical attribute.
func ForAttribute(a model.Attribute) (Domain, bool) {
	switch a {
	case model.AttrPhysicalDisability:
		return PhysicalDisability, true
	case model.AttrIntellectualDisability:
		return IntellectualDisability, true
	case model.AttrAiNoTecho:
		return AiNoTecho, true
	case model.AttrMentalDisability:
		return MentalDisability, true
	}
	return Domain{}, false
}

// YesNo is the domain of profile questions; unanswered is null.
func YesNo(name string) Domain {
	return Domain{Name: name, Choices: []Choice{
		{Label: "", Code: model.Null},
		{Label: "はい", Code: model.Bool(true)},
		{Label: "いいえ", Code: model.Bool(false)},
	}}
}

// ChildCount is the domain 0..max.
func ChildCount(max int) Domain {
	choices := make([]Choice, 0, max+1)
	for i := 0; i <= max; i++ {
		choices = append(choices, Choice{Label: strconv.Itoa(i) + "人", Code: model.Number(float64(i))})
	}
	return Domain{Name: "子どもの数", Choices: choices}
}
