package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape validation is structural only: the field must exist and be an array.
// Semantic problems in array elements are absorbed by normalization instead
// of failing the call.

func requireArray(raw, field string) error {
	_, err := arrayField(raw, field)
	return err
}

func requireNonEmptyArray(raw, field string) error {
	arr, err := arrayField(raw, field)
	if err != nil {
		return err
	}
	if len(arr) == 0 {
		return fmt.Errorf("array field %q is empty", field)
	}
	return nil
}

func arrayField(raw, field string) ([]json.RawMessage, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := probe[field]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, fmt.Errorf("missing array field %q", field)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(v, &arr); err != nil {
		return nil, fmt.Errorf("field %q is not an array: %w", field, err)
	}
	return arr, nil
}
