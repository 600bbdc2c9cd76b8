package probe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
)

const maxProbeBody = 64 << 10

// HTTPProbe fetches the connectivity-check URL without following redirects.
type HTTPProbe struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProbe creates an HTTPProbe. client may be nil; its redirect policy
// is always overridden so a portal's 3xx is observed directly.
func NewHTTPProbe(client *http.Client, logger *slog.Logger) *HTTPProbe {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	c := &http.Client{}
	if client != nil {
		*c = *client
	}
	c.Timeout = 0
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPProbe{client: c, logger: logger}
}

// Check performs one GET bounded by probes.HTTPTimeout.
func (h *HTTPProbe) Check(ctx context.Context, probes config.Probes) *models.HttpProbeResult {
	res := &models.HttpProbeResult{
		Timestamp: time.Now().UTC(),
		URL:       probes.HTTPProbeURL,
	}

	timeout := probes.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, probes.HTTPProbeURL, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			res.Error = reasonCancelled
		case isTimeout(err):
			res.Error = reasonTimeout
		default:
			res.Error = err.Error()
			h.logger.Debug("probe: http check failed", "url", probes.HTTPProbeURL, "error", err.Error())
		}
		return res
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	res.StatusCode = resp.StatusCode
	res.IsSuccess = resp.StatusCode >= 200 && resp.StatusCode < 300
	if res.IsSuccess {
		res.LatencyMs = models.Float(millis(elapsed))
	}

	switch {
	case res.IsSuccess:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
		if err != nil {
			h.logger.Debug("probe: reading http body", "url", probes.HTTPProbeURL, "error", err.Error())
		}
		res.IsCaptivePortal = len(body) > 0 && !containsFold(body, probes.HTTPExpectedContent)
	case isRedirect(resp.StatusCode):
		res.IsCaptivePortal = true
	}
	return res
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func containsFold(body []byte, marker string) bool {
	if marker == "" {
		return true
	}
	return bytes.Contains(bytes.ToLower(body), bytes.ToLower([]byte(marker)))
}
