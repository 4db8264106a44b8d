package form

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/field"
	"github.com/dukerupert/benefitform/internal/household"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/profile"
)

const testMonth model.Period = "2026-10"

type fixture struct {
	hs   *household.Store
	ps   *profile.Store
	form *Form
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hs := household.NewStore(model.NewHousehold(testMonth), testMonth, slog.Default())
	ps := profile.NewStore(model.Yourself{}, slog.Default())
	ps.Subscribe(func(ch cell.Change[model.Yourself]) {
		_, err := hs.ApplyProfile(ch.New)
		require.NoError(t, err)
	})
	f, err := New(hs, ps, 3, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		f.Close()
		hs.Close()
		ps.Close()
	})
	return fixture{hs: hs, ps: ps, form: f}
}

func keys(views []field.View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Key
	}
	return out
}

func TestConditionEval(t *testing.T) {
	c, err := Compile("HasChildren && ChildCount > 1")
	require.NoError(t, err)

	ok, err := c.Eval(Env{HasChildren: true, ChildCount: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Eval(Env{HasChildren: true, ChildCount: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Compile("ChildCount +")
	require.Error(t, err)

	_, err = Compile("ChildCount")
	require.Error(t, err, "non-boolean conditions are rejected")

	ok, err = Condition{}.Eval(Env{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInitialViewsShowOnlyQuestions(t *testing.T) {
	fx := newFixture(t)

	views, err := fx.form.Views()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"あなた.身体障害者手帳がある",
		"あなた.精神障害者保健福祉手帳がある",
		"あなた.療養手帳がある",
		"あなた.配偶者がいる",
		"あなた.子どもがいる",
	}, keys(views))
}

func TestAnsweringRevealsFields(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.form.Select("あなた.身体障害者手帳がある", 1)
	require.NoError(t, err)
	_, err = fx.form.Select("あなた.子どもがいる", 1)
	require.NoError(t, err)
	_, err = fx.form.Select("あなた.子どもの数", 2)
	require.NoError(t, err)

	views, err := fx.form.Views()
	require.NoError(t, err)
	got := keys(views)

	assert.Contains(t, got, "世帯員.あなた.身体障害者手帳等級認定.ETERNITY")
	assert.NotContains(t, got, "世帯員.あなた.精神障害者保健福祉手帳等級.ETERNITY")
	assert.Contains(t, got, "あなた.子どもの数")
	assert.Contains(t, got, "世帯員.子ども2.療育手帳等級.ETERNITY")
	assert.NotContains(t, got, "世帯員.子ども3.療育手帳等級.ETERNITY")
}

func TestHiddenFieldRejected(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.form.Select("世帯員.あなた.身体障害者手帳等級認定.ETERNITY", 1)
	require.ErrorIs(t, err, ErrFieldHidden)

	_, err = fx.form.Select("nope", 0)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestChildCountChangeResetsChildControls(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.form.Select("あなた.子どもがいる", 1)
	require.NoError(t, err)
	_, err = fx.form.Select("あなた.子どもの数", 2)
	require.NoError(t, err)

	key := "世帯員.子ども2.療育手帳等級.ETERNITY"
	view, err := fx.form.Select(key, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Selected)

	var pushed []field.View
	fx.form.OnChange(func(v field.View) { pushed = append(pushed, v) })

	_, err = fx.form.Select("あなた.子どもの数", 3)
	require.NoError(t, err)

	ctrl, ok := fx.form.Field(key)
	require.True(t, ok)
	assert.Equal(t, 0, ctrl.Selected())
	assert.Contains(t, keys(pushed), key)

	_, ok = fx.form.Field("世帯員.子ども3.身体障害者手帳等級認定.ETERNITY")
	assert.True(t, ok)
}

func TestRemovedChildControlsAreClosed(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.form.Select("あなた.子どもがいる", 1)
	require.NoError(t, err)
	_, err = fx.form.Select("あなた.子どもの数", 2)
	require.NoError(t, err)

	_, err = fx.form.Select("あなた.子どもの数", 1)
	require.NoError(t, err)

	_, ok := fx.form.Field("世帯員.子ども2.療育手帳等級.ETERNITY")
	assert.False(t, ok)
	assert.False(t, fx.hs.HasMember("子ども2"))
}
