// Package fetch retrieves product pages, promoting to a headless
// browser when the static body looks like an unrendered app shell.
package fetch

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Request describes one page retrieval.
type Request struct {
	URL     string
	Headers http.Header
}

// Response carries the retrieved page.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Promoted combines a static fetcher with a headless renderer: the
// static result is kept unless the detector flags it as an unrendered
// shell, in which case the page is re-fetched headless. Headless
// failures fall back to the static result.
type Promoted struct {
	static   Fetcher
	headless Fetcher
	detector *Detector
	logger   *zap.Logger
}

// NewPromoted wires the promotion chain. headless may be nil, in which
// case promotion is disabled.
func NewPromoted(static, headless Fetcher, detector *Detector, logger *zap.Logger) *Promoted {
	if detector == nil {
		detector = NewDetector(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoted{static: static, headless: headless, detector: detector, logger: logger}
}

// Fetch retrieves the page, rendering it headless when necessary.
func (p *Promoted) Fetch(ctx context.Context, req Request) (Response, error) {
	resp, err := p.static.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if p.headless == nil || !p.detector.ShouldPromote(resp) {
		return resp, nil
	}
	rendered, err := p.headless.Fetch(ctx, req)
	if err != nil {
		p.logger.Warn("headless render failed, keeping static body",
			zap.String("url", req.URL), zap.Error(err))
		return resp, nil
	}
	return rendered, nil
}
