package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
)

// marshalData serialises relationship_data for storage. A nil or empty map
// is stored as NULL.
func marshalData(data map[string]any) (sql.NullString, error) {
	if len(data) == 0 {
		return sql.NullString{}, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return sql.NullString{}, fmt.Errorf("marshal relationship_data: %w", err)
	}
	return sql.NullString{String: string(bytes.TrimRight(buf.Bytes(), "\n")), Valid: true}, nil
}

// unmarshalData is the inverse of marshalData. Numbers decode as
// json.Number so stored values survive a round trip unchanged.
func unmarshalData(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw.String)))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("unmarshal relationship_data: %w", err)
	}
	return data, nil
}
