// Package model holds the gorm models persisted by passportview.
package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// SectionList is a list of booklet section names stored as one comma separated column.
// Section names are kebab-case and never contain commas.
type SectionList []string

// Value implements driver.Valuer
func (s SectionList) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

// Scan implements sql.Scanner
func (s *SectionList) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SectionList", value)
	}
	if raw == "" {
		*s = SectionList{}
		return nil
	}
	*s = strings.Split(raw, ",")
	return nil
}

// AllModels returns the models to auto-migrate
func AllModels() []any {
	return []any{&ViewLog{}}
}
