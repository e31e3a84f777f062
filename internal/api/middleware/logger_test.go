package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/middleware"
	"github.com/titancoder666/polymarket-tax-engine/internal/logging"
)

func TestLogger(t *testing.T) {
	newLogger := func() (*logrus.Logger, *bytes.Buffer) {
		var buf bytes.Buffer
		return logging.NewWithOutput(&buf, "debug", "json"), &buf
	}

	t.Run("logs method, path and status", func(t *testing.T) {
		logger, buf := newLogger()
		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		handler := chimiddleware.RequestID(middleware.Logger(logger)(next))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tax/x", nil))

		out := buf.String()
		for _, want := range []string{`"method":"GET"`, `"path":"/api/tax/x"`, `"status":418`, `"level":"warning"`, `"requestId":"`} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected log to contain %s, got %s", want, out)
			}
		}
	})

	t.Run("keeps the writer flushable", func(t *testing.T) {
		logger, _ := newLogger()
		flushable := false
		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, flushable = w.(http.Flusher)
		})

		middleware.Logger(logger)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !flushable {
			t.Error("Expected the wrapped writer to implement http.Flusher")
		}
	})
}
