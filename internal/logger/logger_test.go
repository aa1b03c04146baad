package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer

	prod := New(&buf, false)
	assert.Equal(t, zerolog.InfoLevel, prod.GetLevel())
	prod.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	prod.Info().Str("k", "v").Msg("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "v", line["k"])
	assert.Contains(t, line, "time")

	dev := New(&bytes.Buffer{}, true)
	assert.Equal(t, zerolog.DebugLevel, dev.GetLevel())
}

func TestRequests(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	var sawLogger bool
	handler := Requests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("nope"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/guardrails/validate", nil))

	assert.True(t, sawLogger, "handler sees the request logger in its context")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["message"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/api/v1/guardrails/validate", line["path"])
	assert.EqualValues(t, 422, line["status"])
	assert.EqualValues(t, 4, line["bytes"])
}
