package main

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

// newHTTPClient returns a client whose transport simulates a slow link when
// latency or a bandwidth cap is configured.
func newHTTPClient(cfg config) *nethttp.Client {
	transport := nethttp.DefaultTransport
	if base, ok := transport.(*nethttp.Transport); ok {
		transport = base.Clone()
	}
	if cfg.latency > 0 || cfg.bps > 0 {
		transport = &throttleRoundTripper{
			base:           transport,
			latency:        cfg.latency,
			bytesPerSecond: cfg.bps,
		}
	}
	return &nethttp.Client{Transport: transport, Timeout: cfg.timeout}
}

// throttleRoundTripper simulates a slow link: each request waits latency
// before it is sent and its body is paced to bytesPerSecond.
type throttleRoundTripper struct {
	base           nethttp.RoundTripper
	latency        time.Duration
	bytesPerSecond int64
}

func (rt *throttleRoundTripper) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	ctx := req.Context()
	if err := sleepContext(ctx, rt.latency); err != nil {
		return nil, err
	}
	resp, err := rt.base.RoundTrip(req)
	if err != nil || rt.bytesPerSecond <= 0 || resp.Body == nil {
		return resp, err
	}
	resp.Body = &pacedBody{
		ReadCloser: resp.Body,
		ctx:        ctx,
		rate:       rt.bytesPerSecond,
		start:      time.Now(),
	}
	return resp, nil
}

// pacedBody delays reads so the cumulative byte count never runs ahead of
// rate bytes per second since start.
type pacedBody struct {
	io.ReadCloser
	ctx   context.Context
	rate  int64
	start time.Time
	n     int64
}

func (b *pacedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n <= 0 {
		return n, err
	}
	b.n += int64(n)
	due := b.start.Add(time.Duration(float64(b.n) / float64(b.rate) * float64(time.Second)))
	if werr := sleepContext(b.ctx, time.Until(due)); werr != nil {
		return n, werr
	}
	return n, err
}

// sleepContext waits for d or until ctx is done. Non-positive d returns at once.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseBytesPerSecond accepts values like "512", "64k", "10MBps" or "1g/s".
func parseBytesPerSecond(value string) (int64, error) {
	text := strings.TrimSpace(value)
	for _, suffix := range []string{"Bps", "bps", "/s"} {
		text = strings.TrimSuffix(text, suffix)
	}
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"kb", 1 << 10}, {"k", 1 << 10},
		{"mb", 1 << 20}, {"m", 1 << 20},
		{"gb", 1 << 30}, {"g", 1 << 30},
	} {
		if strings.HasSuffix(lower, unit.suffix) {
			multiplier = unit.mult
			text = text[:len(text)-len(unit.suffix)]
			break
		}
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || raw <= 0 {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	return raw * multiplier, nil
}
