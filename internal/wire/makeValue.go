package wire

import (
	"encoding/json"
	"net/http"
)

// MakeError construct a Value with a plain-text body
func MakeError(status int, s string) Value {
	return Value{
		Status: status,
		Body:   []byte(s),
	}
}

// MakeStatus construct a Value with an empty body
func MakeStatus(status int) Value {
	return Value{Status: status}
}

// MakeBadRequestData construct the reply for undecodable bodies
func MakeBadRequestData() Value {
	return MakeError(http.StatusBadRequest, TextBadRequestData)
}

// MakeMissingField construct the reply for absent or empty compulsory fields
func MakeMissingField() Value {
	return MakeError(http.StatusBadRequest, TextMissingField)
}

// MakeUnsupportedField construct the reply for unknown search keys
func MakeUnsupportedField() Value {
	return MakeError(http.StatusBadRequest, TextUnsupported)
}

// MakeDuplicate construct the reply for an already stored entry
func MakeDuplicate() Value {
	return MakeError(http.StatusConflict, TextDuplicate)
}

// MakeNoSuchEntry construct the reply for a missing entry
func MakeNoSuchEntry() Value {
	return MakeError(http.StatusNotFound, TextNoSuchEntry)
}

// MakeUnknownAction construct the reply for an unrecognised command path
func MakeUnknownAction() Value {
	return MakeError(http.StatusNotFound, TextUnknownAction)
}

// MakeServerError construct the generic reply for internal faults
func MakeServerError() Value {
	return MakeError(http.StatusInternalServerError, TextServerError)
}

// MakeArray encodes v as the JSON body of a Value with the given status
func MakeArray[T any](status int, v []T) (Value, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return Value{Status: status, Body: b}, nil
}
