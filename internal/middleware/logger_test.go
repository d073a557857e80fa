package middleware

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// capturingLogger records log entries for assertions.
type capturingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields []observability.Field
}

func (l *capturingLogger) log(level, msg string, fields []observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *capturingLogger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *capturingLogger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *capturingLogger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *capturingLogger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }
func (l *capturingLogger) Fatal(msg string, fields ...observability.Field) { l.log("fatal", msg, fields) }

func (l *capturingLogger) With(fields ...observability.Field) observability.Logger { return l }
func (l *capturingLogger) WithContext(ctx context.Context) observability.Logger    { return l }
func (l *capturingLogger) Sync() error                                             { return nil }

func (l *capturingLogger) last() (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return logEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *capturingLogger) stringField(t *testing.T, entry logEntry, key string) string {
	t.Helper()
	for _, f := range entry.fields {
		if f.Key == key {
			return f.String
		}
	}
	t.Fatalf("field %q not logged", key)
	return ""
}

// decodeEnvelope parses the JSON error envelope from a recorder.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) util.ErrorBody {
	t.Helper()
	var body util.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return body
}
