package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidEncoding = errors.New("wire: body is not valid UTF-8")
	ErrNotObject       = errors.New("wire: body is not a JSON object")
	ErrNotString       = errors.New("wire: field is not a string")
)

// Object is a decoded request body. Values stay raw until a field is asked for
type Object map[string]json.RawMessage

// Parse decodes body as a JSON object. Invalid UTF-8 is rejected before
// decoding since encoding/json would silently replace it
func Parse(body []byte) (Object, error) {
	if !utf8.Valid(body) {
		return nil, ErrInvalidEncoding
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var obj Object
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("wire: decode body: %w", err)
	}
	return obj, nil
}

// String returns the string value of key. present is false when the key is
// missing or null. A value of any other JSON type yields ErrNotString
func (o Object) String(key string) (value string, present bool, err error) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return "", false, nil
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, fmt.Errorf("%w: %s", ErrNotString, key)
	}
	return value, true, nil
}
