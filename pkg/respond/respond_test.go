package respond

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "Import not found.")
	assert.JSONEq(t, `{"error":"Import not found."}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", `{"name":"shop"}`, ""},
		{"empty", ``, "request body is empty"},
		{"unknown field", `{"nam":"shop"}`, "unknown field"},
		{"trailing", `{"name":"a"}{"name":"b"}`, "trailing data"},
		{"malformed", `{"name":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var b body
			err := Decode(req, &b)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "shop", b.Name)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIDParam(t *testing.T) {
	tests := map[string]struct {
		value string
		want  int64
		ok    bool
	}{
		"positive": {"42", 42, true},
		"zero":     {"0", 0, false},
		"negative": {"-1", 0, false},
		"text":     {"abc", 0, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.value)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, ok := IDParam(req, "id")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}
