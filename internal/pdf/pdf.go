// Package pdf converts rendered CV pages to PDF, either through a remote
// rendering API or a local headless Chrome.
package pdf

import (
	"context"
	"errors"
	"fmt"
)

var ErrRateLimited = errors.New("pdf service rate limit exceeded")

const (
	ModeNone   = "none"
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Renderer converts a standalone HTML page to PDF.
type Renderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Options selects and configures a renderer.
type Options struct {
	Mode   string
	APIURL string
	APIKey string
	// ChromeBin overrides the browser binary for local mode.
	ChromeBin string
}

// New returns the renderer for opts.Mode, or nil for ModeNone.
func New(opts Options) (Renderer, error) {
	switch opts.Mode {
	case "", ModeNone:
		return nil, nil
	case ModeRemote:
		if opts.APIURL == "" {
			return nil, errors.New("remote pdf mode requires PDF_API_URL")
		}
		return NewRemoteRenderer(opts.APIURL, opts.APIKey), nil
	case ModeLocal:
		return NewLocalRenderer(opts.ChromeBin), nil
	}
	return nil, fmt.Errorf("unknown pdf mode %q", opts.Mode)
}
