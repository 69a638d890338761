package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// remoteAddrSeen runs one request through TrustedRealIP and reports the
// RemoteAddr the inner handler observed.
func remoteAddrSeen(t *testing.T, trusted []string, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var seen string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

// ----------------------------------------------------------------------------
// TrustedRealIP Tests
// ----------------------------------------------------------------------------

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "trusted proxy with X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy with forwarded chain takes first hop",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.1.2.3"},
			want:       "203.0.113.9",
		},
		{
			name:       "X-Real-IP wins over X-Forwarded-For",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4567",
			headers: map[string]string{
				"X-Real-IP":       "203.0.113.9",
				"X-Forwarded-For": "198.51.100.7",
			},
			want: "203.0.113.9",
		},
		{
			name:       "untrusted peer keeps socket address",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "198.51.100.7:4567",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "198.51.100.7:4567",
		},
		{
			name:       "no trusted proxies configured is a no-op",
			trusted:    nil,
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "10.1.2.3:4567",
		},
		{
			name:       "single address entry accepted",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:9000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "garbage header value keeps socket address",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.1.2.3:4567",
		},
		{
			name:       "invalid trusted entry is skipped",
			trusted:    []string{"not-a-cidr", "10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remoteAddrSeen(t, tt.trusted, tt.remoteAddr, tt.headers)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
