package server

import (
	"context"

	"github.com/eternalApril/phonebook/internal/storage"
	"github.com/eternalApril/phonebook/internal/wire"
)

// request carries everything a command needs to serve one call
type request struct {
	ctx     context.Context
	body    []byte
	storage storage.Storage
}

// command returns a reply for every protocol outcome and an error only for internal faults
type command interface {
	execute(req *request) (wire.Value, error)
}

type commandFunc func(req *request) (wire.Value, error)

func (c commandFunc) execute(req *request) (wire.Value, error) {
	return c(req)
}
