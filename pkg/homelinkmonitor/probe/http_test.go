package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/probe"
)

func httpProbes(url string) config.Probes {
	p := config.Default().Probes
	p.HTTPProbeURL = url
	p.HTTPTimeout = time.Second
	return p
}

func TestCheck_Outcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("microsoft connect test"))
	})
	mux.HandleFunc("/portal", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>Please log in</html>"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cases := []struct {
		path    string
		success bool
		captive bool
		status  int
	}{
		{"/ok", true, false, 200},
		{"/portal", true, true, 200},
		{"/empty", true, false, 200},
		{"/redirect", false, true, 302},
		{"/error", false, false, 503},
	}

	h := probe.NewHTTPProbe(nil, nil)
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			res := h.Check(context.Background(), httpProbes(srv.URL+tc.path))
			require.NotNil(t, res)
			assert.Equal(t, tc.success, res.IsSuccess)
			assert.Equal(t, tc.captive, res.IsCaptivePortal)
			assert.Equal(t, tc.status, res.StatusCode)
			if tc.success {
				assert.NotNil(t, res.LatencyMs)
			} else {
				assert.Nil(t, res.LatencyMs, "a failed check carries no latency")
			}
			assert.Empty(t, res.Error)
		})
	}
}

func TestCheck_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := httpProbes(srv.URL)
	p.HTTPTimeout = 100 * time.Millisecond
	res := probe.NewHTTPProbe(nil, nil).Check(context.Background(), p)
	assert.False(t, res.IsSuccess)
	assert.Equal(t, "Timeout", res.Error)
	assert.Nil(t, res.LatencyMs)
}

func TestCheck_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := probe.NewHTTPProbe(nil, nil).Check(ctx, httpProbes(srv.URL))
	assert.Equal(t, "Cancelled", res.Error)
}

func TestCheck_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := probe.NewHTTPProbe(nil, nil).Check(context.Background(), httpProbes(url))
	assert.False(t, res.IsSuccess)
	assert.NotEmpty(t, res.Error)
	assert.NotEqual(t, "Timeout", res.Error)
}
