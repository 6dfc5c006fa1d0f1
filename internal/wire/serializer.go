package wire

import (
	"encoding/json"
)

// Record is one journaled command: its name and the request body that succeeded
type Record struct {
	Cmd  string          `json:"cmd"`
	Body json.RawMessage `json:"body"`
}

// SerializeCommand converts the command to a single JSON line.
// The body is compacted so the record never spans lines
func SerializeCommand(cmd string, body []byte) ([]byte, error) {
	b, err := json.Marshal(Record{Cmd: cmd, Body: json.RawMessage(body)})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
