package household

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/benefitform/internal/model"
)

const testMonth model.Period = "2026-10"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(model.NewHousehold(testMonth), testMonth, slog.Default())
	t.Cleanup(s.Close)
	return s
}

func TestSetAttributeTouchesOnlyOnePath(t *testing.T) {
	s := newTestStore(t)
	before := s.Get()

	_, err := s.SetAttribute(model.SelfName, model.AttrPhysicalDisability, model.Eternity, model.Code("二級"))
	require.NoError(t, err)

	after := s.Get()
	values, present, err := after.Attribute(model.SelfName, model.AttrPhysicalDisability)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, model.Code("二級"), values[model.Eternity])

	delete(after.Members[model.SelfName], model.AttrPhysicalDisability)
	assert.True(t, before.Equal(after), "only the written path may differ")
}

func TestSetAttributeUnknownMember(t *testing.T) {
	s := newTestStore(t)
	rev := s.Revision()

	_, err := s.SetAttribute("子ども7", model.AttrIntellectualDisability, model.Eternity, model.Code("A"))

	require.ErrorIs(t, err, model.ErrUnknownMember)
	assert.Equal(t, rev, s.Revision())
}

func TestWatchFiresOnlyForWatchedPath(t *testing.T) {
	s := newTestStore(t)
	var changes []AttributeChange
	s.Watch(model.SelfName, model.AttrIntellectualDisability, func(c AttributeChange) {
		changes = append(changes, c)
	})

	_, err := s.SetAttribute(model.SelfName, model.AttrPhysicalDisability, model.Eternity, model.Code("一級"))
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = s.SetAttribute(model.SelfName, model.AttrIntellectualDisability, model.Eternity, model.Code("B"))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.Code("B"), changes[0].Value())
	assert.True(t, changes[0].Present)
}

func TestWatchSeesCompositionReset(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetChildren(2)
	require.NoError(t, err)
	_, err = s.SetAttribute("子ども2", model.AttrIntellectualDisability, model.Eternity, model.Code("A"))
	require.NoError(t, err)

	var got []model.Value
	s.Watch("子ども2", model.AttrIntellectualDisability, func(c AttributeChange) {
		got = append(got, c.Value())
	})

	_, err = s.SetChildren(3)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, model.Code(model.NoneCode), got[0])
}

func TestWatchReportsRemoval(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetChildren(2)
	require.NoError(t, err)

	var last AttributeChange
	s.Watch("子ども2", model.AttrPhysicalDisability, func(c AttributeChange) { last = c })

	_, err = s.SetChildren(1)
	require.NoError(t, err)

	assert.False(t, last.Present)
	assert.True(t, last.Value().IsNull())
	assert.False(t, s.HasMember("子ども2"))
}

func TestApplyProfileDrivesComposition(t *testing.T) {
	s := newTestStore(t)
	yes := true

	_, err := s.ApplyProfile(model.Yourself{HasSpouse: &yes, HasChildren: &yes, ChildCount: 1})
	require.NoError(t, err)

	h := s.Get()
	require.NoError(t, h.Validate())
	assert.ElementsMatch(t, []string{model.SelfName, model.SpouseName}, h.Units[model.DefaultUnit].Guardians)
	assert.Equal(t, []string{"子ども1"}, h.Units[model.DefaultUnit].Children)
}

func TestMergeResults(t *testing.T) {
	s := newTestStore(t)
	result := s.Get()
	result.Units[model.DefaultUnit].Benefits[model.BenefitSpecialChildSupport] = model.PeriodValues{testMonth: model.Number(53700)}

	_, err := s.MergeResults(result)
	require.NoError(t, err)

	got := s.Get().Units[model.DefaultUnit].Benefits[model.BenefitSpecialChildSupport][testMonth]
	assert.Equal(t, model.Number(53700), got)
}

func TestAttributeReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	values, _, rev, err := s.Attribute(model.SelfName, model.AttrIncome)
	require.NoError(t, err)
	assert.Equal(t, s.Revision(), rev)

	values[testMonth] = model.Number(999)

	again, _, _, err := s.Attribute(model.SelfName, model.AttrIncome)
	require.NoError(t, err)
	assert.Equal(t, model.Number(0), again[testMonth])
}
