package server

import (
	"errors"
	"fmt"

	"github.com/eternalApril/phonebook/internal/storage"
	"github.com/eternalApril/phonebook/internal/wire"
)

var (
	errBadRequestData   = errors.New("bad request data")
	errMissingField     = errors.New("missing compulsory field")
	errUnsupportedField = errors.New("unsupported field")
)

// updateRequest locates an entry by its current tuple and replaces it
type updateRequest struct {
	old     storage.Entry
	updated storage.Entry
}

// parseEntry validates a create or remove body
func parseEntry(body []byte) (storage.Entry, error) {
	obj, err := decode(body)
	if err != nil {
		return storage.Entry{}, err
	}
	return readEntry(obj, "")
}

// parseUpdate validates an update body: the exact current tuple plus the new* fields
func parseUpdate(body []byte) (updateRequest, error) {
	obj, err := decode(body)
	if err != nil {
		return updateRequest{}, err
	}

	old, err := readEntry(obj, "")
	if err != nil {
		return updateRequest{}, err
	}

	updated, err := readEntry(obj, "new")
	if err != nil {
		return updateRequest{}, err
	}

	// an explicit empty newaddress would silently wipe the address
	if v, present, _ := obj.String("newaddress"); present && v == "" { //nolint:errcheck // type checked by readEntry
		return updateRequest{}, fmt.Errorf("%w: newaddress", errMissingField)
	}

	return updateRequest{old: old, updated: updated}, nil
}

// parseSearch validates a search body and returns the surname fragment.
// A missing surname is reported before any extra key
func parseSearch(body []byte) (string, error) {
	obj, err := decode(body)
	if err != nil {
		return "", err
	}

	surname, err := compulsory(obj, "surname")
	if err != nil {
		return "", err
	}

	if len(obj) > 1 {
		return "", errUnsupportedField
	}
	return surname, nil
}

func decode(body []byte) (wire.Object, error) {
	obj, err := wire.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequestData, err)
	}
	return obj, nil
}

// readEntry reads surname, firstname, number and address, each key prefixed by prefix
func readEntry(obj wire.Object, prefix string) (storage.Entry, error) {
	var (
		e   storage.Entry
		err error
	)

	if e.Surname, err = compulsory(obj, prefix+"surname"); err != nil {
		return storage.Entry{}, err
	}
	if e.Firstname, err = compulsory(obj, prefix+"firstname"); err != nil {
		return storage.Entry{}, err
	}
	if e.Number, err = compulsory(obj, prefix+"number"); err != nil {
		return storage.Entry{}, err
	}
	if e.Address, err = optional(obj, prefix+"address"); err != nil {
		return storage.Entry{}, err
	}
	return e, nil
}

// compulsory returns a field that must be present and non-empty
func compulsory(obj wire.Object, key string) (string, error) {
	v, present, err := obj.String(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequestData, err)
	}
	if !present || v == "" {
		return "", fmt.Errorf("%w: %s", errMissingField, key)
	}
	return v, nil
}

// optional returns a field defaulting to the empty string
func optional(obj wire.Object, key string) (string, error) {
	v, _, err := obj.String(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequestData, err)
	}
	return v, nil
}

// validationReply maps a validation failure to its 400 reply
func validationReply(err error) wire.Value {
	switch {
	case errors.Is(err, errMissingField):
		return wire.MakeMissingField()
	case errors.Is(err, errUnsupportedField):
		return wire.MakeUnsupportedField()
	default:
		return wire.MakeBadRequestData()
	}
}
