package kv

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a stored value that could not be decoded.
var ErrMalformed = errors.New("kv: malformed value")

// Validator is implemented by stored types that check their required fields
// after decoding.
type Validator interface {
	Validate() error
}

// Encode serializes v for storage.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("kv: encode %T: %w", v, err)
	}
	return string(data), nil
}

// Decode parses a stored value into v. Older writers stored some values as a
// JSON string that itself contains JSON, so a string-wrapped document is
// unwrapped once before giving up. The result is validated when v implements
// Validator.
func Decode(raw string, v any) error {
	err := json.Unmarshal([]byte(raw), v)
	if err != nil {
		var inner string
		if json.Unmarshal([]byte(raw), &inner) != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal([]byte(inner), v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return nil
}
