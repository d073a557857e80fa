package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAccessLogLevelByStatusClass(t *testing.T) {
	cases := []struct {
		name   string
		status int
		level  string
	}{
		{"success", http.StatusOK, "info"},
		{"redirect", http.StatusMovedPermanently, "info"},
		{"client error", http.StatusNotFound, "warn"},
		{"server error", http.StatusBadGateway, "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := &capturingLogger{}
			h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search?q=mine", nil))

			entry, ok := logger.last()
			if !ok {
				t.Fatal("no log entry written")
			}
			if entry.level != tc.level {
				t.Fatalf("level = %q, want %q", entry.level, tc.level)
			}
		})
	}
}

func TestAccessLogFields(t *testing.T) {
	logger := &capturingLogger{}
	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/search?q=mine", nil)
	req.Header.Set("User-Agent", "probe/1.0")
	req.RemoteAddr = "192.0.2.10:4711"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry, ok := logger.last()
	if !ok {
		t.Fatal("no log entry written")
	}
	if got := logger.stringField(t, entry, "method"); got != http.MethodGet {
		t.Errorf("method = %q", got)
	}
	if got := logger.stringField(t, entry, "path"); got != "/search" {
		t.Errorf("path = %q", got)
	}
	if got := logger.stringField(t, entry, "client_ip"); got != "192.0.2.10" {
		t.Errorf("client_ip = %q", got)
	}
	if got := logger.stringField(t, entry, "user_agent"); got != "probe/1.0" {
		t.Errorf("user_agent = %q", got)
	}
}

func TestAccessLogClientIPBehindProxy(t *testing.T) {
	logger := &capturingLogger{}
	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set(headerXForwardedFor, "203.0.113.7, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:9999"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry, _ := logger.last()
	if got := logger.stringField(t, entry, "client_ip"); got != "203.0.113.7" {
		t.Fatalf("client_ip = %q, want first forwarded hop", got)
	}
}

func TestRedactQuery(t *testing.T) {
	query := url.Values{
		"q":     []string{"mine"},
		"token": []string{"super-secret"},
		"key":   []string{"hunter2"},
	}

	encoded := redactQuery(query)

	if strings.Contains(encoded, "super-secret") || strings.Contains(encoded, "hunter2") {
		t.Fatalf("sensitive values leaked: %q", encoded)
	}
	if !strings.Contains(encoded, "q=mine") {
		t.Fatalf("benign param missing: %q", encoded)
	}
	if !strings.Contains(encoded, url.QueryEscape(redactedValue)) {
		t.Fatalf("redaction marker missing: %q", encoded)
	}
}

func TestRedactQueryEmpty(t *testing.T) {
	if got := redactQuery(url.Values{}); got != "" {
		t.Fatalf("redactQuery(empty) = %q, want empty", got)
	}
}
