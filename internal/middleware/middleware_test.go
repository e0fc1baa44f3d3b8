package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.Header.Get(RequestIDHeader)))
})

func TestRequestID_Generated(t *testing.T) {
	rr := httptest.NewRecorder()
	RequestID(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rr.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("Expected generated request ID")
	}
	if rr.Body.String() != id {
		t.Errorf("Expected handler to see %q, got %q", id, rr.Body.String())
	}
}

func TestRequestID_Preserved(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	RequestID(okHandler).ServeHTTP(rr, req)

	if rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("Expected 'abc-123', got %q", rr.Header().Get(RequestIDHeader))
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		origin      string
		allowOrigin string
		preflight   bool
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", "http://localhost:3000", false},
		{"other origin", http.MethodGet, "http://evil.test", "", false},
		{"preflight", http.MethodOptions, "http://localhost:3000", "http://localhost:3000", true},
		{"preflight other origin", http.MethodOptions, "http://evil.test", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			}
			rr := httptest.NewRecorder()

			CORS("http://localhost:3000")(okHandler).ServeHTTP(rr, req)

			if rr.Code >= 300 {
				t.Errorf("Expected a 2xx status, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.allowOrigin {
				t.Errorf("Expected allow origin %q, got %q", tc.allowOrigin, got)
			}
			if tc.preflight && rr.Body.Len() != 0 {
				t.Errorf("Expected preflight to stop before the handler, got body %q", rr.Body.String())
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anywhere.test")
	rr := httptest.NewRecorder()

	CORS("*")(okHandler).ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Expected any origin to be allowed with '*'")
	}
}
