package server

import (
	"net/http"
	"slices"
)

type commandMetadata struct {
	method  string   // HTTP method that selects the command
	flags   []string // readonly, write
	summary string
}

var commandRegistry = map[string]commandMetadata{
	"list": {
		method:  http.MethodGet,
		flags:   []string{"readonly"},
		summary: "List every entry ordered by surname.",
	},
	"create": {
		method:  http.MethodPost,
		flags:   []string{"write"},
		summary: "Add an entry unless an identical one exists.",
	},
	"remove": {
		method:  http.MethodPost,
		flags:   []string{"write"},
		summary: "Delete the entry matching all four fields.",
	},
	"update": {
		method:  http.MethodPost,
		flags:   []string{"write"},
		summary: "Replace the entry matching all four fields with the new* values.",
	},
	"search": {
		method:  http.MethodPost,
		flags:   []string{"readonly"},
		summary: "Find entries whose surname contains a fragment, ignoring case.",
	},
}

// isWriteCommand helper what command change state of the phonebook
func isWriteCommand(name string) bool {
	meta, ok := commandRegistry[name]
	return ok && slices.Contains(meta.flags, "write")
}

// knownCommand reports whether name is served for method
func knownCommand(method, name string) bool {
	meta, ok := commandRegistry[name]
	return ok && meta.method == method
}
