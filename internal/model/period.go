package model

import (
	"fmt"
	"time"
)

// Period keys a value in time. Eternity means the value holds continuously.
type Period string

const Eternity Period = "ETERNITY"

// MonthOf returns the month period ("2006-01") containing t.
func MonthOf(t time.Time) Period {
	return Period(t.Format("2006-01"))
}

// ParsePeriod accepts ETERNITY, a month ("2006-01") or a day ("2006-01-02").
func ParsePeriod(s string) (Period, error) {
	if s == string(Eternity) {
		return Eternity, nil
	}
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return Period(s), nil
		}
	}
	return "", fmt.Errorf("invalid period %q", s)
}
