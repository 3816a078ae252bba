// Package pdf prints rendered report pages through headless Chrome.
package pdf

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"ipo-report-go/internal/logger"
)

// A4 portrait in inches, margins 15/15/18/15 mm.
const (
	paperWidth   = 8.27
	paperHeight  = 11.69
	marginTop    = 15 / 25.4
	marginRight  = 15 / 25.4
	marginBottom = 18 / 25.4
	marginLeft   = 15 / 25.4
)

// Converter turns one HTML document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// ChromeConfig picks the browser. ControlURL connects to a running Chrome;
// otherwise Bin (or rod's managed download) is launched.
type ChromeConfig struct {
	ControlURL string
	Bin        string
	Headless   bool
	NoSandbox  bool
}

// Chrome is a Converter backed by one shared browser. It starts lazily and
// is safe for concurrent use; every conversion gets its own tab.
type Chrome struct {
	cfg ChromeConfig
	log *logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	// kill stops the Chrome process this Chrome launched; nil when connected
	// to an external browser.
	kill func()
}

func NewChrome(cfg ChromeConfig, log *logger.Logger) *Chrome {
	return &Chrome{cfg: cfg, log: log.WithComponent("pdf")}
}

func (c *Chrome) start() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		if _, err := c.browser.Version(); err == nil {
			return c.browser, nil
		}
		c.log.Warn("stale browser connection, relaunching")
		_ = c.release()
	}

	controlURL := c.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(c.cfg.Headless).NoSandbox(c.cfg.NoSandbox)
		if c.cfg.Bin != "" {
			l = l.Bin(c.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
		c.kill = l.Kill
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	c.browser = b
	c.log.WithField("control_url", controlURL).Info("browser connected")
	return b, nil
}

// Convert prints html to an A4 PDF with backgrounds.
func (c *Chrome) Convert(ctx context.Context, html string) ([]byte, error) {
	b, err := c.start()
	if err != nil {
		return nil, err
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	stream, err := page.PDF(printOptions())
	if err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}
	defer stream.Close()
	out, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return out, nil
}

func printOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      ptr(paperWidth),
		PaperHeight:     ptr(paperHeight),
		MarginTop:       ptr(marginTop),
		MarginRight:     ptr(marginRight),
		MarginBottom:    ptr(marginBottom),
		MarginLeft:      ptr(marginLeft),
	}
}

func ptr(v float64) *float64 { return &v }

// Close shuts the browser down and kills it when this process launched it.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release()
}

// release drops the connection and the launched process. Callers hold mu.
func (c *Chrome) release() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.kill != nil {
		c.kill()
		c.kill = nil
	}
	return err
}
