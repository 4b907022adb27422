package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aypapol/panel/internal/errs"
)

func TestWriteErrorMapsKindToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.NotFound("missing"), http.StatusNotFound},
		{errs.Conflict("taken"), http.StatusConflict},
		{errs.Validation("bad input"), http.StatusBadRequest},
		{errs.Unauthorized("nope"), http.StatusUnauthorized},
		{errs.Forbidden("nope"), http.StatusForbidden},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, tc.err.Error(), body["error"])
	}
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	writeOK(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body["ok"])
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var dst map[string]any
	err := decodeJSON(req, &dst)
	assert.Error(t, err)
}

func TestDecodeJSONPopulatesDestination(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"name":"Survival"}`)))
	var dst struct {
		Name string `json:"name"`
	}
	require.NoError(t, decodeJSON(req, &dst))
	assert.Equal(t, "Survival", dst.Name)
}
