package integration

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// listenLoopback binds IPv4 loopback explicitly and skips when the sandbox
// refuses to open sockets.
func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping: loopback listen not permitted: %v", err)
		}
		require.NoError(t, err)
	}
	return listener
}

// newUpstream serves the three market data providers from one server. The
// social endpoint always answers 503.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	ts := &httptest.Server{
		Listener: listenLoopback(t),
		Config: &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.URL.Path == "/query":
				_, _ = w.Write([]byte(`{"Meta Data":{"2. Symbol":"` + r.URL.Query().Get("symbol") + `"},"Time Series (Daily)":{"2026-10-16":{"4. close":"231.10"}}}`))
			case r.URL.Path == "/v2/everything":
				_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"title":"Earnings beat","source":{"name":"Wire"}}]}`))
			case strings.HasSuffix(r.URL.Path, "/tweets/search/recent"):
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"title":"Service Unavailable"}`))
			default:
				http.NotFound(w, r)
			}
		})},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}
