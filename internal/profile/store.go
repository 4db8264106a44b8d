// Package profile holds the respondent's own answers for one session.
package profile

import (
	"fmt"
	"log/slog"

	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/model"
)

// FieldChange is delivered to field watchers.
type FieldChange struct {
	Field    model.ProfileField
	Value    *bool
	Revision uint64
}

type Store struct {
	cell   *cell.Cell[model.Yourself]
	logger *slog.Logger
}

func NewStore(initial model.Yourself, logger *slog.Logger) *Store {
	return &Store{
		cell:   cell.New(initial, model.Yourself.Clone),
		logger: logger,
	}
}

func (s *Store) Get() model.Yourself {
	return s.cell.Get()
}

// Snapshot returns the current answers and the revision that committed them.
func (s *Store) Snapshot() (model.Yourself, uint64) {
	return s.cell.Snapshot()
}

func (s *Store) Set(y model.Yourself) uint64 {
	return s.cell.Set(y)
}

// Subscribe runs fn after every commit.
func (s *Store) Subscribe(fn func(cell.Change[model.Yourself])) func() {
	return s.cell.Subscribe(fn)
}

// WatchField runs fn when the answer to f changes.
func (s *Store) WatchField(f model.ProfileField, fn func(FieldChange)) func() {
	return s.cell.Subscribe(func(ch cell.Change[model.Yourself]) {
		oldV, newV := ch.Old.Flag(f), ch.New.Flag(f)
		if equalFlag(oldV, newV) {
			return
		}
		fn(FieldChange{Field: f, Value: newV, Revision: ch.Revision})
	})
}

// WatchChildCount runs fn when the effective number of children changes.
func (s *Store) WatchChildCount(fn func(count int, revision uint64)) func() {
	return s.cell.Subscribe(func(ch cell.Change[model.Yourself]) {
		if ch.Old.EffectiveChildCount() == ch.New.EffectiveChildCount() {
			return
		}
		fn(ch.New.EffectiveChildCount(), ch.Revision)
	})
}

// SetField stores the answer to f; nil clears it.
func (s *Store) SetField(f model.ProfileField, v *bool) (uint64, error) {
	return s.cell.Update(func(y *model.Yourself) error {
		return y.SetFlag(f, v)
	})
}

// SetChildCount records how many children the respondent has. A positive
// count also answers 子どもがいる with yes.
func (s *Store) SetChildCount(n, max int) (uint64, error) {
	if n < 0 || n > max {
		return 0, fmt.Errorf("%w: %d (max %d)", model.ErrInvalidChildCount, n, max)
	}
	return s.cell.Update(func(y *model.Yourself) error {
		y.ChildCount = n
		if n > 0 {
			yes := true
			y.HasChildren = &yes
		}
		return nil
	})
}

func (s *Store) Close() {
	s.cell.Close()
}

func equalFlag(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
