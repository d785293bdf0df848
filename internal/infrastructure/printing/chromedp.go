package printing

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	appquoting "github.com/erp/quoting/internal/application/quoting"
	"go.uber.org/zap"
)

const defaultChromeTimeout = 30 * time.Second

//go:embed templates/document.html
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.html").
		Funcs(template.FuncMap{"section": newSection}).
		ParseFS(templateFS, "templates/document.html"),
)

type section struct {
	Title string
	Lines []lineView
}

func newSection(title string, lines []lineView) section {
	return section{Title: title, Lines: lines}
}

// ChromedpConfig contains configuration for the chromedp renderer
type ChromedpConfig struct {
	// DefaultTimeout applies when the caller's context has no deadline
	DefaultTimeout time.Duration
	// RemoteURL is the DevTools URL of a running browser.
	// If empty, chromedp launches a new browser instance.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	PaperSize PaperSize
	Logger    *zap.Logger
}

// ChromedpRenderer prints the HTML document template with headless Chrome
type ChromedpRenderer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates a new chromedp-based PDF renderer
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultChromeTimeout
	}
	if config.PaperSize.Width == 0 {
		config.PaperSize = paperSizes["Letter"]
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{config: config, logger: logger}
	r.initAllocator()
	return r, nil
}

func (r *ChromedpRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// Render implements appquoting.DocumentRenderer
func (r *ChromedpRenderer) Render(ctx context.Context, templateName string, doc appquoting.Document) ([]byte, error) {
	html, err := renderHTML(templateName, doc)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.DefaultTimeout)
		defer cancel()
	}

	start := time.Now()
	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// stop the browser tab when the caller gives up
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdfData []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(mmToInches(r.config.PaperSize.Width)).
				WithPaperHeight(mmToInches(r.config.PaperSize.Height)).
				WithMarginTop(mmToInches(pageMargin)).
				WithMarginRight(mmToInches(pageMargin)).
				WithMarginBottom(mmToInches(pageMargin)).
				WithMarginLeft(mmToInches(pageMargin)).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	r.logger.Info("PDF rendered successfully",
		zap.String("template", templateName),
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(start)))
	return pdfData, nil
}

// Close releases the browser allocator
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// renderHTML executes the document template for doc
func renderHTML(templateName string, doc appquoting.Document) (string, error) {
	view, err := newDocumentView(templateName, doc)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute document template", err)
	}
	return buf.String(), nil
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// IsRenderError reports whether err carries the given RenderError code
func IsRenderError(err error, code string) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Code == code
}

var _ Renderer = (*ChromedpRenderer)(nil)
