package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SheetBool is a boolean flag as it arrives from spreadsheet-backed imports,
// where the same column can hold "TRUE", "1", 1 or true depending on who
// edited the sheet. All encodings are normalized here so call sites only
// ever see a plain bool.
type SheetBool bool

// NormalizeBool coerces any of the accepted flag encodings to a strict bool.
// Unrecognized values are false.
func NormalizeBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		}
		return false
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return false
	}
}

// Bool unwraps the normalized value.
func (b SheetBool) Bool() bool {
	return bool(b)
}

// UnmarshalJSON accepts booleans, numbers and strings.
func (b *SheetBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sheet bool: %w", err)
	}
	*b = SheetBool(NormalizeBool(raw))
	return nil
}

// MarshalJSON always emits a native boolean.
func (b SheetBool) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(b))), nil
}

// Scan implements sql.Scanner for database reads.
func (b *SheetBool) Scan(src any) error {
	if src == nil {
		*b = false
		return nil
	}
	if raw, ok := src.([]byte); ok {
		*b = SheetBool(NormalizeBool(string(raw)))
		return nil
	}
	*b = SheetBool(NormalizeBool(src))
	return nil
}

// Value implements driver.Valuer for database writes.
func (b SheetBool) Value() (driver.Value, error) {
	return bool(b), nil
}
