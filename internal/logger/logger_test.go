package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatConsole, ParseLogFormat("console"))
	assert.Equal(t, FormatConsole, ParseLogFormat("CONSOLE"))
	assert.Equal(t, FormatJSON, ParseLogFormat("json"))
	assert.Equal(t, FormatJSON, ParseLogFormat("anything-else"))
}

func TestSetupAndGet(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	})

	log := Get()
	require.NotNil(t, log)

	log.Info("hello", map[string]interface{}{"answer": 42})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, float64(42), entry["answer"])
}

func TestLevelFiltering(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{
		Level:  "warn",
		Format: FormatJSON,
		Output: &buf,
	})

	log := Get()
	log.Debug("not visible")
	log.Info("not visible either")
	assert.Zero(t, buf.Len())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithFields(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{Level: "info", Format: FormatJSON, Output: &buf})

	log := Get().WithFields(map[string]interface{}{"component": "test"})
	log.Info("tagged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["component"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l *Logger
	l.Info("no panic")
	l.Debugf("no panic %d", 1)
	l.Error("no panic")
	assert.NotNil(t, l.With(map[string]interface{}{"k": "v"}))
}

func TestHTTPMiddleware(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{Level: "info", Format: FormatJSON, Output: &buf})

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/books", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/books", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	assert.NotNil(t, FromContext(nil))

	custom := Get().With(map[string]interface{}{"scoped": true})
	ctx := NewContext(httptest.NewRequest(http.MethodGet, "/", nil).Context(), custom)
	assert.Same(t, custom, FromContext(ctx))
}
