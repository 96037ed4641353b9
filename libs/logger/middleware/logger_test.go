package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		status        int
		expectedLogs  int
		expectedLevel zapcore.Level
	}{
		{name: "ok request logged as info", path: "/posts/1", status: http.StatusOK, expectedLogs: 1, expectedLevel: zapcore.InfoLevel},
		{name: "not found logged as warn", path: "/posts/99", status: http.StatusNotFound, expectedLogs: 1, expectedLevel: zapcore.WarnLevel},
		{name: "server error logged as error", path: "/", status: http.StatusInternalServerError, expectedLogs: 1, expectedLevel: zapcore.ErrorLevel},
		{name: "successful upload skipped", path: "/uploads/posts/a.png", status: http.StatusOK, expectedLogs: 0},
		{name: "missing upload logged", path: "/uploads/posts/b.png", status: http.StatusNotFound, expectedLogs: 1, expectedLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			logger := zap.New(core)

			handler := LoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			entries := logs.All()
			assert.Len(t, entries, tt.expectedLogs)
			if tt.expectedLogs > 0 {
				assert.Equal(t, tt.expectedLevel, entries[0].Level)
				assert.Equal(t, int64(tt.status), entries[0].ContextMap()["status"])
				assert.Equal(t, int64(4), entries[0].ContextMap()["bytes"])
			}
		})
	}
}
