package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "FlowMetrics/pkg/logger"
)

type recordedHTTP struct {
	method, route string
	status        int
}

type fakeRecorder struct{ calls []recordedHTTP }

func (f *fakeRecorder) RecordHTTP(method, route string, status int, _ float64) {
	f.calls = append(f.calls, recordedHTTP{method, route, status})
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	l := applogger.NewWithWriter(&buf, zerolog.DebugLevel)
	rec := &fakeRecorder{}

	e := echo.New()
	e.Use(RequestID(), RequestLogging(l, 0), Metrics(rec), Recover(l))
	e.GET("/items/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(c echo.Context) error { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-1", rr.Header().Get(echo.HeaderXRequestID))

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
	assert.NotEmpty(t, rr.Header().Get(echo.HeaderXRequestID))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, recordedHTTP{http.MethodGet, "/items/:id", http.StatusOK}, rec.calls[0])
	assert.Equal(t, recordedHTTP{http.MethodGet, "/panic", http.StatusInternalServerError}, rec.calls[1])
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), "panic recovered")
}
