package server

import (
	"errors"
	"net/http"

	"github.com/eternalApril/phonebook/internal/storage"
	"github.com/eternalApril/phonebook/internal/wire"
)

// list answers 200 with every entry, or 204 when the phonebook is empty
func list(req *request) (wire.Value, error) {
	entries, err := req.storage.List(req.ctx)
	if err != nil {
		return wire.Value{}, err
	}
	if len(entries) == 0 {
		return wire.MakeStatus(http.StatusNoContent), nil
	}
	return wire.MakeArray(http.StatusOK, entries)
}

// create answers 201, or 409 when the exact tuple is already stored
func create(req *request) (wire.Value, error) {
	e, err := parseEntry(req.body)
	if err != nil {
		return validationReply(err), nil
	}

	exists, err := req.storage.Exists(req.ctx, e)
	if err != nil {
		return wire.Value{}, err
	}
	if exists {
		return wire.MakeDuplicate(), nil
	}

	// the backend constraint still wins a race against a concurrent create
	err = req.storage.Insert(req.ctx, e)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return wire.MakeDuplicate(), nil
	case err != nil:
		return wire.Value{}, err
	}
	return wire.MakeStatus(http.StatusCreated), nil
}

// remove answers 201 once the exact tuple is deleted, 404 when there was nothing to delete
func remove(req *request) (wire.Value, error) {
	e, err := parseEntry(req.body)
	if err != nil {
		return validationReply(err), nil
	}

	n, err := req.storage.Delete(req.ctx, e)
	if err != nil {
		return wire.Value{}, err
	}
	if n == 0 {
		return wire.MakeNoSuchEntry(), nil
	}
	return wire.MakeStatus(http.StatusCreated), nil
}

// update answers 201, 404 when the current tuple is absent, 409 when the new tuple is taken
func update(req *request) (wire.Value, error) {
	u, err := parseUpdate(req.body)
	if err != nil {
		return validationReply(err), nil
	}

	err = req.storage.Update(req.ctx, u.old, u.updated)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return wire.MakeNoSuchEntry(), nil
	case errors.Is(err, storage.ErrDuplicate):
		return wire.MakeDuplicate(), nil
	case err != nil:
		return wire.Value{}, err
	}
	return wire.MakeStatus(http.StatusCreated), nil
}

// search answers 200 with the matches, or 404 with an empty body when nothing matches
func search(req *request) (wire.Value, error) {
	fragment, err := parseSearch(req.body)
	if err != nil {
		return validationReply(err), nil
	}

	entries, err := req.storage.Search(req.ctx, fragment)
	if err != nil {
		return wire.Value{}, err
	}
	if len(entries) == 0 {
		return wire.MakeStatus(http.StatusNotFound), nil
	}
	return wire.MakeArray(http.StatusOK, entries)
}
