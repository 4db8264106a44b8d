package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/benefitform/internal/model"
)

type CalculationStore struct {
	db *sql.DB
}

func NewCalculationStore(db *sql.DB) *CalculationStore {
	return &CalculationStore{db: db}
}

func scanCalculation(scanner interface{ Scan(...any) error }) (*model.Calculation, error) {
	var c model.Calculation
	err := scanner.Scan(&c.ID, &c.SessionID, &c.Month, &c.Status, &c.Error, &c.Request, &c.Response, &c.DurationMS, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const calculationCols = `id, session_id, month, status, error, request, response, duration_ms, created_at`

// Record stores one exchange with the simulator.
func (s *CalculationStore) Record(c model.Calculation) (*model.Calculation, error) {
	c.ID = uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO calculations (id, session_id, month, status, error, request, response, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, string(c.Month), c.Status, c.Error, c.Request, c.Response, c.DurationMS, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calculation: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+calculationCols+` FROM calculations WHERE id = ?`, c.ID)
	return scanCalculation(row)
}

// ListBySession returns the newest calculations of a session first.
func (s *CalculationStore) ListBySession(sessionID string, limit int) ([]model.Calculation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+calculationCols+` FROM calculations WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	var calcs []model.Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		calcs = append(calcs, *c)
	}
	return calcs, rows.Err()
}
