package models

import (
	"database/sql/driver"
	"fmt"
)

// PositionType is the placement of an ad break within a stream
type PositionType string

const (
	PositionPreRoll  PositionType = "pre-roll"
	PositionMidRoll  PositionType = "mid-roll"
	PositionPostRoll PositionType = "post-roll"
)

// String returns the string representation of the position
func (p PositionType) String() string {
	return string(p)
}

// Valid checks if the position is valid
func (p PositionType) Valid() bool {
	switch p {
	case PositionPreRoll, PositionMidRoll, PositionPostRoll:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PositionType
func (p *PositionType) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = PositionType(v)
	case []byte:
		*p = PositionType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PositionType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PositionType
func (p PositionType) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid PositionType: %s", p)
	}
	return string(p), nil
}
