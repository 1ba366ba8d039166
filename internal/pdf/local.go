package pdf

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"jsoncv/pkg/logger"
)

// LocalRenderer prints pages with a headless Chrome started on first use.
type LocalRenderer struct {
	Bin string

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewLocalRenderer(bin string) *LocalRenderer {
	return &LocalRenderer{Bin: bin}
}

func (r *LocalRenderer) start(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if r.Bin != "" {
		l = l.Bin(r.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	logger.Sugar.Infof("Started headless Chrome for PDF rendering")
	r.launcher = l
	r.browser = browser
	return browser, nil
}

func (r *LocalRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	browser, err := r.start(ctx)
	if err != nil {
		return nil, err
	}
	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set page content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for page: %w", err)
	}
	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return io.ReadAll(stream)
}

// Close stops the browser if it was started.
func (r *LocalRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Cleanup()
	r.browser = nil
	r.launcher = nil
	return err
}
