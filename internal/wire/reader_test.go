package wire_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/phonebook/internal/wire"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr error
	}{
		{
			name:    "Valid object",
			input:   `{"surname":"Dent","firstname":"Arthur"}`,
			wantLen: 2,
		},
		{
			name:    "Empty object",
			input:   `{}`,
			wantLen: 0,
		},
		{
			name:    "Leading whitespace",
			input:   " \n\t{\"surname\":\"Dent\"}\n",
			wantLen: 1,
		},
		{
			name:    "Empty body",
			input:   "",
			wantErr: wire.ErrNotObject,
		},
		{
			name:    "Array",
			input:   `[{"surname":"Dent"}]`,
			wantErr: wire.ErrNotObject,
		},
		{
			name:    "String",
			input:   `"Dent"`,
			wantErr: wire.ErrNotObject,
		},
		{
			name:    "Null",
			input:   `null`,
			wantErr: wire.ErrNotObject,
		},
		{
			name:    "Invalid UTF-8",
			input:   "{\"surname\":\"\xff\xfe\"}",
			wantErr: wire.ErrInvalidEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := wire.Parse([]byte(tt.input))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, obj, tt.wantLen)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		`{"surname":"Dent"`,
		`{"surname":}`,
		`{"surname" "Dent"}`,
		`{"surname":"Dent"} trailing`,
		`{surname:"Dent"}`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := wire.Parse([]byte(input))
			require.Error(t, err)
			assert.False(t, errors.Is(err, wire.ErrInvalidEncoding))
		})
	}
}

func TestObjectString(t *testing.T) {
	obj, err := wire.Parse([]byte(`{"surname":"Dent","address":"","number":18,"firstname":null,"tags":["a"]}`))
	require.NoError(t, err)

	tests := []struct {
		name        string
		key         string
		wantValue   string
		wantPresent bool
		wantErr     error
	}{
		{"String value", "surname", "Dent", true, nil},
		{"Empty string", "address", "", true, nil},
		{"Missing key", "city", "", false, nil},
		{"Null is absent", "firstname", "", false, nil},
		{"Number", "number", "", true, wire.ErrNotString},
		{"Array", "tags", "", true, wire.ErrNotString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, present, err := obj.String(tt.key)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantValue, v)
			assert.Equal(t, tt.wantPresent, present)
		})
	}
}

func TestSerializeCommand(t *testing.T) {
	line, err := wire.SerializeCommand("create", []byte("{\n  \"surname\": \"Dent\",\n  \"firstname\": \"Arthur\"\n}"))
	require.NoError(t, err)

	assert.Equal(t, `{"cmd":"create","body":{"surname":"Dent","firstname":"Arthur"}}`+"\n", string(line))
}

func FuzzParse(f *testing.F) {
	f.Add([]byte(`{"surname":"Dent"}`))
	f.Add([]byte(`{"surname":"é"}`))
	f.Add([]byte("{\"x\":\"\xff\"}"))
	f.Add([]byte(`[]`))

	f.Fuzz(func(t *testing.T, body []byte) {
		obj, err := wire.Parse(body)
		if err != nil {
			return
		}
		for key := range obj {
			// must never panic whatever the value type is
			_, _, _ = obj.String(key) //nolint:errcheck
		}
	})
}
