package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/broadcast-delivery-service/internal/apperr"
)

func TestStatusFor_MapsEachClass(t *testing.T) {
	cases := []struct {
		class apperr.Class
		want  int
	}{
		{apperr.ClassNotFound, 404},
		{apperr.ClassValidation, 400},
		{apperr.ClassRateLimited, 429},
		{apperr.ClassConflictCAS, 409},
		{apperr.ClassStoreUnavailable, 503},
		{apperr.ClassLogUnavailable, 503},
		{apperr.ClassGridUnavailable, 503},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.class), c.class)
	}
}

func TestWriteError_AppErrorWritesMappedStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperr.Validation("invalid_id", "id is not a uuid")

	writeError(rec, err)

	assert.Equal(t, 400, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_id", body["error"])
	assert.Equal(t, "id is not a uuid", body["detail"])
}

func TestWriteError_PlainErrorWrites500(t *testing.T) {
	rec := httptest.NewRecorder()

	writeError(rec, errors.New("boom"))

	assert.Equal(t, 500, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["error"])
	assert.Equal(t, "boom", body["detail"])
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, 201, map[string]int{"count": 3})

	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body["count"])
}
