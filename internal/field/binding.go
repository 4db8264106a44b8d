package field

import (
	"fmt"

	"github.com/dukerupert/benefitform/internal/household"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/profile"
)

// Binding connects a controller to the one path it displays.
type Binding interface {
	Path() string
	// Read returns the current value and the store revision it was read
	// at. present is false when the container does not exist yet.
	Read() (v model.Value, present bool, revision uint64, err error)
	Write(v model.Value) error
	// Watch calls fn whenever the value at the path changes. revision
	// increases with every commit of the underlying store.
	Watch(fn func(v model.Value, revision uint64)) (cancel func())
}

// MemberBinding binds a member attribute at the ETERNITY period.
type MemberBinding struct {
	Store     *household.Store
	Member    string
	Attribute model.Attribute
}

func (b MemberBinding) Path() string {
	return fmt.Sprintf("世帯員.%s.%s.%s", b.Member, b.Attribute, model.Eternity)
}

func (b MemberBinding) Read() (model.Value, bool, uint64, error) {
	values, present, rev, err := b.Store.Attribute(b.Member, b.Attribute)
	if err != nil {
		return model.Null, false, rev, err
	}
	if !present {
		return model.Null, false, rev, nil
	}
	return values[model.Eternity], true, rev, nil
}

func (b MemberBinding) Write(v model.Value) error {
	_, err := b.Store.SetAttribute(b.Member, b.Attribute, model.Eternity, v)
	return err
}

func (b MemberBinding) Watch(fn func(model.Value, uint64)) func() {
	return b.Store.Watch(b.Member, b.Attribute, func(c household.AttributeChange) {
		fn(c.Value(), c.Revision)
	})
}

// ProfileBinding binds one yes/no answer of the respondent.
type ProfileBinding struct {
	Store *profile.Store
	Field model.ProfileField
}

func (b ProfileBinding) Path() string {
	return "あなた." + string(b.Field)
}

func (b ProfileBinding) Read() (model.Value, bool, uint64, error) {
	y, rev := b.Store.Snapshot()
	v := y.Flag(b.Field)
	if v == nil {
		return model.Null, false, rev, nil
	}
	return model.Bool(*v), true, rev, nil
}

func (b ProfileBinding) Write(v model.Value) error {
	if v.IsNull() {
		_, err := b.Store.SetField(b.Field, nil)
		return err
	}
	flag, ok := v.AsBool()
	if !ok {
		return fmt.Errorf("%s: expected boolean, got %v", b.Path(), v)
	}
	_, err := b.Store.SetField(b.Field, &flag)
	return err
}

func (b ProfileBinding) Watch(fn func(model.Value, uint64)) func() {
	return b.Store.WatchField(b.Field, func(c profile.FieldChange) {
		if c.Value == nil {
			fn(model.Null, c.Revision)
			return
		}
		fn(model.Bool(*c.Value), c.Revision)
	})
}

// ChildCountBinding binds the number of children. Writing it changes the
// household composition once the profile is mirrored into the household.
type ChildCountBinding struct {
	Store *profile.Store
	Max   int
}

func (b ChildCountBinding) Path() string {
	return "あなた.子どもの数"
}

func (b ChildCountBinding) Read() (model.Value, bool, uint64, error) {
	y, rev := b.Store.Snapshot()
	return model.Number(float64(y.EffectiveChildCount())), true, rev, nil
}

func (b ChildCountBinding) Write(v model.Value) error {
	n, ok := v.AsNumber()
	if !ok {
		return fmt.Errorf("%s: expected number, got %v", b.Path(), v)
	}
	_, err := b.Store.SetChildCount(int(n), b.Max)
	return err
}

func (b ChildCountBinding) Watch(fn func(model.Value, uint64)) func() {
	return b.Store.WatchChildCount(func(n int, rev uint64) {
		fn(model.Number(float64(n)), rev)
	})
}
