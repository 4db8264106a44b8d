package model

import (
	"fmt"
	"time"
)

// ProfileField names one yes/no question asked of the respondent.
type ProfileField string

const (
	FieldPhysicalCert     ProfileField = "身体障害者手帳がある"
	FieldMentalCert       ProfileField = "精神障害者保健福祉手帳がある"
	FieldIntellectualCert ProfileField = "療養手帳がある"
	FieldSpouse           ProfileField = "配偶者がいる"
	FieldChildren         ProfileField = "子どもがいる"
)

// ProfileFields lists the yes/no questions in form order.
func ProfileFields() []ProfileField {
	return []ProfileField{
		FieldPhysicalCert,
		FieldMentalCert,
		FieldIntellectualCert,
		FieldSpouse,
		FieldChildren,
	}
}

// Yourself is the respondent's own answers, kept apart from the household
// and mirrored into it by ApplyProfile.
type Yourself struct {
	BirthDate        *string `json:"誕生年月日"`
	PhysicalCert     *bool   `json:"身体障害者手帳がある"`
	MentalCert       *bool   `json:"精神障害者保健福祉手帳がある"`
	IntellectualCert *bool   `json:"療養手帳がある"`
	HasSpouse        *bool   `json:"配偶者がいる"`
	HasChildren      *bool   `json:"子どもがいる"`
	ChildCount       int     `json:"子どもの数"`
}

func (y Yourself) Clone() Yourself {
	out := y
	out.BirthDate = clonePtr(y.BirthDate)
	out.PhysicalCert = clonePtr(y.PhysicalCert)
	out.MentalCert = clonePtr(y.MentalCert)
	out.IntellectualCert = clonePtr(y.IntellectualCert)
	out.HasSpouse = clonePtr(y.HasSpouse)
	out.HasChildren = clonePtr(y.HasChildren)
	return out
}

// Flag returns the answer stored for f, nil when unanswered.
func (y Yourself) Flag(f ProfileField) *bool {
	switch f {
	case FieldPhysicalCert:
		return y.PhysicalCert
	case FieldMentalCert:
		return y.MentalCert
	case FieldIntellectualCert:
		return y.IntellectualCert
	case FieldSpouse:
		return y.HasSpouse
	case FieldChildren:
		return y.HasChildren
	}
	return nil
}

func (y *Yourself) SetFlag(f ProfileField, v *bool) error {
	v = clonePtr(v)
	switch f {
	case FieldPhysicalCert:
		y.PhysicalCert = v
	case FieldMentalCert:
		y.MentalCert = v
	case FieldIntellectualCert:
		y.IntellectualCert = v
	case FieldSpouse:
		y.HasSpouse = v
	case FieldChildren:
		y.HasChildren = v
	default:
		return fmt.Errorf("unknown profile field %q", f)
	}
	return nil
}

// EffectiveChildCount is ChildCount when the respondent has children, else 0.
func (y Yourself) EffectiveChildCount() int {
	if y.HasChildren == nil || !*y.HasChildren {
		return 0
	}
	return y.ChildCount
}

// Validate checks the birth date format and that the child count lies in
// [0, maxChildren].
func (y Yourself) Validate(maxChildren int) error {
	if y.BirthDate != nil {
		if _, err := time.Parse("2006-01-02", *y.BirthDate); err != nil {
			return fmt.Errorf("invalid birth date %q", *y.BirthDate)
		}
	}
	if y.ChildCount < 0 || y.ChildCount > maxChildren {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidChildCount, y.ChildCount, maxChildren)
	}
	return nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
