// Package household holds a session's household aggregate and notifies
// readers of the exact attribute paths that changed.
package household

import (
	"log/slog"

	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/model"
)

// AttributeChange is delivered to path watchers. Present is false when the
// member or its attribute container is gone.
type AttributeChange struct {
	Member    string
	Attribute model.Attribute
	Values    model.PeriodValues
	Present   bool
	Revision  uint64
}

// Value returns the value for the ETERNITY period.
func (c AttributeChange) Value() model.Value {
	if !c.Present {
		return model.Null
	}
	return c.Values[model.Eternity]
}

// Store is the single source of truth for one session's household.
type Store struct {
	cell   *cell.Cell[model.Household]
	month  model.Period
	logger *slog.Logger
}

// NewStore creates a store holding initial. month is the period used for
// income and benefit slots of members created by composition changes.
func NewStore(initial model.Household, month model.Period, logger *slog.Logger) *Store {
	return &Store{
		cell:   cell.New(initial, model.Household.Clone),
		month:  month,
		logger: logger,
	}
}

func (s *Store) Month() model.Period { return s.month }

// Get returns a private copy of the current household.
func (s *Store) Get() model.Household {
	return s.cell.Get()
}

func (s *Store) Revision() uint64 {
	return s.cell.Revision()
}

// Update applies fn to a copy of the household and commits it atomically.
func (s *Store) Update(fn func(*model.Household) error) (uint64, error) {
	return s.cell.Update(fn)
}

// Attribute reads one attribute of the committed household along with the
// revision it was read at.
func (s *Store) Attribute(member string, a model.Attribute) (values model.PeriodValues, present bool, revision uint64, err error) {
	s.cell.View(func(h model.Household, rev uint64) {
		values, present, err = h.Attribute(member, a)
		values = values.Clone()
		revision = rev
	})
	return values, present, revision, err
}

// HasMember reports whether member is currently in the household.
func (s *Store) HasMember(member string) bool {
	var ok bool
	s.cell.View(func(h model.Household, _ uint64) { ok = h.HasMember(member) })
	return ok
}

// Subscribe runs fn after every commit.
func (s *Store) Subscribe(fn func(cell.Change[model.Household])) func() {
	return s.cell.Subscribe(fn)
}

// Watch runs fn whenever the values stored at member/attribute differ
// between two consecutive commits.
func (s *Store) Watch(member string, a model.Attribute, fn func(AttributeChange)) func() {
	return s.cell.Subscribe(func(ch cell.Change[model.Household]) {
		oldValues, oldPresent := lookup(ch.Old, member, a)
		newValues, newPresent := lookup(ch.New, member, a)
		if oldPresent == newPresent && oldValues.Equal(newValues) {
			return
		}
		fn(AttributeChange{
			Member:    member,
			Attribute: a,
			Values:    newValues.Clone(),
			Present:   newPresent,
			Revision:  ch.Revision,
		})
	})
}

func lookup(h model.Household, member string, a model.Attribute) (model.PeriodValues, bool) {
	p, ok := h.Members[member]
	if !ok {
		return nil, false
	}
	values, ok := p[a]
	return values, ok
}

// SetAttribute writes value at member/attribute/period and leaves every
// other path untouched.
func (s *Store) SetAttribute(member string, a model.Attribute, period model.Period, v model.Value) (uint64, error) {
	return s.cell.Update(func(h *model.Household) error {
		if _, _, err := h.Attribute(member, a); err != nil {
			return err
		}
		h.Members[member].Set(a, period, v)
		return nil
	})
}

// SetChildren changes the number of children, resetting dependent grades.
func (s *Store) SetChildren(n int) (uint64, error) {
	return s.cell.Update(func(h *model.Household) error {
		changed, err := h.SetChildren(n, s.month)
		if err != nil {
			return err
		}
		if changed {
			s.logger.Debug("children changed", "count", n)
		}
		return nil
	})
}

// SetSpouse adds or removes the spouse.
func (s *Store) SetSpouse(present bool) (uint64, error) {
	return s.cell.Update(func(h *model.Household) error {
		h.SetSpouse(present, s.month)
		return nil
	})
}

// ApplyProfile mirrors the respondent's answers into the household.
func (s *Store) ApplyProfile(y model.Yourself) (uint64, error) {
	return s.cell.Update(func(h *model.Household) error {
		return h.ApplyProfile(y, s.month)
	})
}

// MergeResults copies simulated benefit values into the household.
func (s *Store) MergeResults(result model.Household) (uint64, error) {
	return s.cell.Update(func(h *model.Household) error {
		n := h.MergeResults(result)
		s.logger.Debug("merged simulation results", "values", n)
		return nil
	})
}

// Close drops every subscriber. The store stays readable.
func (s *Store) Close() {
	s.cell.Close()
}
