package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Unwrap decodes a league API payload that is either enveloped as
// {"data": X} or is X itself. A present, non-null "data" member selects the
// envelope form; anything else is decoded as the bare payload.
func Unwrap[T any](body []byte) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return out, errors.New("empty response body")
	}

	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			if err := json.Unmarshal(envelope.Data, &out); err != nil {
				return out, fmt.Errorf("decode enveloped payload: %w", err)
			}
			return out, nil
		}
	}

	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
