package wire_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/phonebook/internal/storage"
	"github.com/eternalApril/phonebook/internal/wire"
)

func TestEncoder_Write(t *testing.T) {
	tests := []struct {
		name         string
		input        wire.Value
		wantStatus   int
		wantBody     string
		wantLength   string
		wantNoLength bool
	}{
		{
			name:       "Duplicate entry",
			input:      wire.MakeDuplicate(),
			wantStatus: http.StatusConflict,
			wantBody:   "Duplicate entry.",
			wantLength: "16",
		},
		{
			name:       "Missing field",
			input:      wire.MakeMissingField(),
			wantStatus: http.StatusBadRequest,
			wantBody:   "Missing compulsory field.",
			wantLength: "25",
		},
		{
			name:       "Unknown action",
			input:      wire.MakeUnknownAction(),
			wantStatus: http.StatusNotFound,
			wantBody:   "Unknown action.",
			wantLength: "15",
		},
		{
			name:       "Server error",
			input:      wire.MakeServerError(),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Server Error",
			wantLength: "12",
		},
		{
			name:       "Created has zero length",
			input:      wire.MakeStatus(http.StatusCreated),
			wantStatus: http.StatusCreated,
			wantBody:   "",
			wantLength: "0",
		},
		{
			name:         "No content has no length",
			input:        wire.MakeStatus(http.StatusNoContent),
			wantStatus:   http.StatusNoContent,
			wantBody:     "",
			wantNoLength: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			err := wire.NewEncoder(rec).Write(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, wire.ContentType, rec.Header().Get("Content-Type"))

			if tt.wantNoLength {
				assert.Empty(t, rec.Header().Get("Content-Length"))
			} else {
				assert.Equal(t, tt.wantLength, rec.Header().Get("Content-Length"))
			}
		})
	}
}

func TestEncoder_WriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()

	wire.NewEncoder(rec).WriteHeader(wire.MakeStatus(http.StatusOK))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wire.ContentType, rec.Header().Get("Content-Type"))
	assert.Zero(t, rec.Body.Len())
}

func TestMakeArray(t *testing.T) {
	t.Run("Entries", func(t *testing.T) {
		v, err := wire.MakeArray(http.StatusOK, []storage.Entry{
			{Surname: "Dent", Firstname: "Arthur", Number: "01818118181"},
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, v.Status)
		assert.JSONEq(t,
			`[{"surname":"Dent","firstname":"Arthur","number":"01818118181","address":""}]`,
			string(v.Body))
	})

	t.Run("Nil slice encodes as empty array", func(t *testing.T) {
		v, err := wire.MakeArray[storage.Entry](http.StatusOK, nil)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(v.Body))
	})
}
