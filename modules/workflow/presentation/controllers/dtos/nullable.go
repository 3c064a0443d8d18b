package dtos

import (
	"bytes"
	"encoding/json"
)

// NullableID tells an absent key from an explicit null. Set is true when the
// key was present; Value is nil for null.
type NullableID struct {
	Set   bool
	Value *int64
}

func (n *NullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Valid rejects non-positive ids.
func (n NullableID) Valid() bool {
	return n.Value == nil || *n.Value > 0
}
