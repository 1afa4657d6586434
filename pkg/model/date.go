package model

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// SystemDate is a calendar date (YYYY-MM-DD) selecting the per-date registration range.
type SystemDate string

func ParseSystemDate(s string) (SystemDate, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return SystemDate(s), nil
}

func DateOf(t time.Time) SystemDate {
	return SystemDate(t.Format(DateLayout))
}

func (d SystemDate) String() string {
	return string(d)
}

func (d SystemDate) IsZero() bool {
	return d == ""
}

func (d SystemDate) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// Compact returns the date as yyyymmdd, the form used in archive codes.
func (d SystemDate) Compact() string {
	return strings.ReplaceAll(string(d), "-", "")
}
