// Package printing renders quote and contract documents to PDF.
//
// Two engines are available: an in-process gofpdf layout and an HTML
// template printed by headless Chrome. Both render the same view of the
// document so the output carries the same content.
package printing

import (
	"context"
	"fmt"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Renderer is a DocumentRenderer holding resources that must be released
type Renderer interface {
	appquoting.DocumentRenderer
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeUnknownTemplate  = "UNKNOWN_TEMPLATE"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewDocumentRenderer builds the renderer selected by cfg.Engine
func NewDocumentRenderer(cfg config.RenderConfig, logger *zap.Logger) (Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	size, ok := paperSizes[cfg.PaperSize]
	if !ok {
		return nil, NewRenderError(ErrCodeInvalidPaperSize, "invalid paper size: "+cfg.PaperSize, nil)
	}

	switch cfg.Engine {
	case "", "pdf":
		return NewPDFRenderer(size, logger), nil
	case "chrome":
		return NewChromedpRenderer(&ChromedpConfig{
			RemoteURL: cfg.ChromeURL,
			NoSandbox: cfg.NoSandbox,
			PaperSize: size,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("unknown render engine %q", cfg.Engine)
	}
}

// PaperSize is a page format with its dimensions in millimeters
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

var paperSizes = map[string]PaperSize{
	"":       {Name: "Letter", Width: 215.9, Height: 279.4},
	"Letter": {Name: "Letter", Width: 215.9, Height: 279.4},
	"A4":     {Name: "A4", Width: 210, Height: 297},
}

// contextError maps an expired or cancelled ctx to a RenderError
func contextError(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return NewRenderError(ErrCodeRenderTimeout, "PDF rendering timed out", ctx.Err())
	default:
		return NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", ctx.Err())
	}
}
