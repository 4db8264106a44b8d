// Package form assembles the controllers of one session into the ordered,
// condition-filtered list the browser renders.
package form

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/field"
	"github.com/dukerupert/benefitform/internal/household"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/profile"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldHidden  = errors.New("field is hidden")
)

type gradeRule struct {
	attr   model.Attribute
	showIf Condition
}

var (
	profileLabels = map[model.ProfileField]string{
		model.FieldPhysicalCert:     "身体障害者手帳をお持ちですか",
		model.FieldMentalCert:       "精神障害者保健福祉手帳をお持ちですか",
		model.FieldIntellectualCert: "療育手帳（愛の手帳）をお持ちですか",
		model.FieldSpouse:           "配偶者はいますか",
		model.FieldChildren:         "子どもはいますか",
	}

	childCountCondition = MustCompile("HasChildren")

	selfRules = []gradeRule{
		{model.AttrPhysicalDisability, MustCompile("HasPhysicalCert")},
		{model.AttrIntellectualDisability, MustCompile("HasIntellectualCert")},
		{model.AttrAiNoTecho, MustCompile("HasIntellectualCert")},
		{model.AttrMentalDisability, MustCompile("HasMentalCert")},
	}

	childRules = []gradeRule{
		{model.AttrPhysicalDisability, MustCompile("HasChildren && ChildCount > 0")},
		{model.AttrIntellectualDisability, MustCompile("HasChildren && ChildCount > 0")},
		{model.AttrAiNoTecho, MustCompile("HasChildren && ChildCount > 0")},
		{model.AttrMentalDisability, MustCompile("HasChildren && ChildCount > 0")},
	}
)

type entry struct {
	ctrl   *field.Controller
	showIf Condition
	member string
}

// Form owns every controller of a session.
type Form struct {
	household   *household.Store
	profile     *profile.Store
	maxChildren int
	logger      *slog.Logger

	mu        sync.Mutex
	entries   []*entry
	byKey     map[string]*entry
	listeners []func(field.View)
	cancel    func()
	closed    bool
}

// New builds the form and starts following household composition.
func New(hs *household.Store, ps *profile.Store, maxChildren int, logger *slog.Logger) (*Form, error) {
	f := &Form{
		household:   hs,
		profile:     ps,
		maxChildren: maxChildren,
		logger:      logger,
		byKey:       make(map[string]*entry),
	}

	for _, pf := range model.ProfileFields() {
		c, err := field.New(
			model.SelfName+"."+string(pf),
			profileLabels[pf],
			field.YesNo(string(pf)),
			field.ProfileBinding{Store: ps, Field: pf},
		)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.add(&entry{ctrl: c})
	}

	count, err := field.New(
		"あなた.子どもの数",
		"子どもの人数",
		field.ChildCount(maxChildren),
		field.ChildCountBinding{Store: ps, Max: maxChildren},
	)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.add(&entry{ctrl: count, showIf: childCountCondition})

	f.cancel = hs.Subscribe(func(ch cell.Change[model.Household]) {
		if err := f.Sync(); err != nil {
			f.logger.Error("sync form", "error", err, "revision", ch.Revision)
		}
	})
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *Form) add(e *entry) {
	f.entries = append(f.entries, e)
	f.byKey[e.ctrl.Key()] = e
	for _, fn := range f.listeners {
		e.ctrl.OnChange(fn)
	}
}

// Sync creates grade controllers for members that gained them and closes
// those of members that left the household.
func (f *Form) Sync() error {
	h := f.household.Get()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.member != "" && !h.HasMember(e.member) {
			e.ctrl.Close()
			delete(f.byKey, e.ctrl.Key())
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept

	members := append([]string{model.SelfName}, h.ChildNames()...)
	for _, member := range members {
		rules := childRules
		if member == model.SelfName {
			rules = selfRules
		}
		for _, r := range rules {
			b := field.MemberBinding{Store: f.household, Member: member, Attribute: r.attr}
			if _, ok := f.byKey[b.Path()]; ok {
				continue
			}
			domain, _ := field.ForAttribute(r.attr)
			c, err := field.New(b.Path(), domain.Name, domain, b)
			if err != nil {
				// The member left between Get and New; the next commit
				// will sync again.
				if errors.Is(err, model.ErrUnknownMember) {
					continue
				}
				return fmt.Errorf("create field %s: %w", b.Path(), err)
			}
			f.add(&entry{ctrl: c, showIf: r.showIf, member: member})
		}
	}
	return nil
}

// Views returns the visible controls in layout order.
func (f *Form) Views() ([]field.View, error) {
	env := EnvOf(f.profile.Get())

	f.mu.Lock()
	entries := append([]*entry{}, f.entries...)
	f.mu.Unlock()

	views := make([]field.View, 0, len(entries))
	for _, e := range entries {
		ok, err := e.showIf.Eval(env)
		if err != nil {
			return nil, err
		}
		if ok {
			views = append(views, e.ctrl.View())
		}
	}
	return views, nil
}

// Select applies a user selection to the visible field key.
func (f *Form) Select(key string, index int) (field.View, error) {
	f.mu.Lock()
	e, ok := f.byKey[key]
	f.mu.Unlock()
	if !ok {
		return field.View{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}

	visible, err := e.showIf.Eval(EnvOf(f.profile.Get()))
	if err != nil {
		return field.View{}, err
	}
	if !visible {
		return field.View{}, fmt.Errorf("%w: %s", ErrFieldHidden, key)
	}

	if err := e.ctrl.Select(index); err != nil {
		return field.View{}, err
	}
	return e.ctrl.View(), nil
}

// Field returns the controller for key.
func (f *Form) Field(key string) (*field.Controller, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byKey[key]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// OnChange registers fn on every current and future controller.
func (f *Form) OnChange(fn func(field.View)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	for _, e := range f.entries {
		e.ctrl.OnChange(fn)
	}
}

// Close stops every controller.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	entries := f.entries
	f.entries = nil
	f.byKey = map[string]*entry{}
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, e := range entries {
		e.ctrl.Close()
	}
}
