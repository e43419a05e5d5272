package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set over plain HTTP")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}

func TestCORS(t *testing.T) {
	c := NewCORS([]string{"http://localhost:5173", "https://app.example/"})
	h := c.Middleware(okHandler)

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantCode   int
		wantOrigin string
	}{
		{"allowed simple", http.MethodGet, "http://localhost:5173", false, http.StatusOK, "http://localhost:5173"},
		{"trailing slash normalized", http.MethodGet, "https://app.example", false, http.StatusOK, "https://app.example"},
		{"unknown origin passes without header", http.MethodGet, "https://evil.example", false, http.StatusOK, ""},
		{"allowed preflight", http.MethodOptions, "http://localhost:5173", true, http.StatusNoContent, "http://localhost:5173"},
		{"rejected preflight", http.MethodOptions, "https://evil.example", true, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/expenses", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.preflight && tt.wantCode == http.StatusNoContent &&
				!strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
				t.Error("preflight must allow the Authorization header")
			}
		})
	}

	if !NewCORS([]string{"*"}).Allowed("https://anything.example") {
		t.Error("wildcard should allow any origin")
	}
}

type reasonCounter map[string]int

func (c reasonCounter) IncSuspicious(reason string) { c[reason]++ }

func TestDetector(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   string
	}{
		{"clean", http.MethodGet, "/api/transactions", "Mozilla/5.0", ""},
		{"traversal", http.MethodGet, "/api/../../etc/passwd", "", ReasonPath},
		{"dotenv", http.MethodGet, "/.env", "", ReasonPath},
		{"sql in query", http.MethodGet, "/api/people?type=union%20select", "", ReasonQuery},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", ReasonUserAgent},
		{"trace method", "TRACE", "/", "", ReasonMethod},
		{"long url", http.MethodGet, "/api/expenses?q=" + strings.Repeat("a", 2100), "", ReasonLength},
	}
	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if got := d.Detect(req); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware(t *testing.T) {
	counter := reasonCounter{}
	h := NewDetector(counter).Middleware(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("flagged GET code = %d, want pass-through 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("TRACE", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("TRACE code = %d, want 405", rec.Code)
	}

	if counter[ReasonPath] != 1 || counter[ReasonMethod] != 1 {
		t.Errorf("counter = %v", counter)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:4000", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:4000", "198.51.100.9, 10.0.0.1", "198.51.100.9"},
		{"untrusted proxy ignored", "203.0.113.7:4000", "198.51.100.9", "203.0.113.7"},
		{"invalid forwarded ip", "127.0.0.1:4000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
