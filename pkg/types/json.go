package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// columnBytes unwraps what drivers hand to Scan for text and json columns.
// Postgres (pgx) returns string or []byte, sqlite returns string.
func columnBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("cannot scan %T into a json column", src)
	}
}

// jsonArrayValue encodes a slice column; nil is stored as an empty array so
// NOT NULL columns accept it.
func jsonArrayValue[S ~[]E, E any](s S) (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]E(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// scanJSONArray is the Scan counterpart of jsonArrayValue. NULL scans to an
// empty, non-nil slice.
func scanJSONArray[S ~[]E, E any](src any, dst *S) error {
	if src == nil {
		*dst = S{}
		return nil
	}
	raw, err := columnBytes(src)
	if err != nil {
		return err
	}
	var decoded []E
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode json array: %w", err)
	}
	if decoded == nil {
		decoded = []E{}
	}
	*dst = S(decoded)
	return nil
}
