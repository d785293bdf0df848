package printing

import (
	"bytes"
	"context"
	"strconv"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// line table columns: name, sku, qty, price, addons, total
var columnWeights = []float64{0.34, 0.16, 0.08, 0.14, 0.14, 0.14}

// PDFRenderer lays documents out with gofpdf using the core fonts
type PDFRenderer struct {
	paper    PaperSize
	logger   *zap.Logger
	compress bool
	now      func() time.Time
}

// NewPDFRenderer creates an in-process renderer
func NewPDFRenderer(paper PaperSize, logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{paper: paper, logger: logger, compress: true, now: time.Now}
}

// Render implements appquoting.DocumentRenderer
func (r *PDFRenderer) Render(ctx context.Context, templateName string, doc appquoting.Document) ([]byte, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}
	view, err := newDocumentView(templateName, doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: r.paper.Width, Ht: r.paper.Height},
	})
	pdf.SetCompression(r.compress)
	pdf.SetCreationDate(r.now())
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(view.Heading, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin + 2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 4, tr(view.Reference+"  |  Page ")+strconv.Itoa(pdf.PageNo())+"/{nb}", "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	contentWidth, _ := pdf.GetPageSize()
	contentWidth -= 2 * pageMargin

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(view.Heading), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, lineHeight, tr("Reference "+view.Reference), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	details := []labelValue{
		{"Prepared for", view.PartyName},
		{"Status", view.Status},
		{"Term", view.Term},
	}
	if view.IsContract && view.ContractName != "" {
		details = append(details, labelValue{"Contract", view.ContractName})
	}
	details = append(details, view.Dates...)
	for _, d := range details {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, lineHeight, tr(d.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineHeight, tr(d.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	writeLineTable(pdf, tr, contentWidth, "Services", view.Services)
	writeLineTable(pdf, tr, contentWidth, "Products", view.Products)

	labelWidth := contentWidth * 0.7
	for i, t := range view.Totals {
		style := ""
		if i == len(view.Totals)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(t.Label), "", 0, "R", false, 0, "")
		pdf.CellFormat(contentWidth-labelWidth, lineHeight, tr(t.Value), "", 1, "R", false, 0, "")
	}

	if view.IsContract {
		pdf.Ln(12)
		pdf.SetFont("Helvetica", "", 10)
		half := contentWidth / 2
		pdf.CellFormat(half-5, lineHeight, "", "B", 0, "L", false, 0, "")
		pdf.CellFormat(10, lineHeight, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(half-5, lineHeight, "", "B", 1, "L", false, 0, "")
		pdf.CellFormat(half+5, lineHeight, tr("Signature"), "", 0, "L", false, 0, "")
		pdf.CellFormat(half-5, lineHeight, tr("Date"), "", 1, "L", false, 0, "")
	}

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}

	r.logger.Debug("PDF rendered",
		zap.String("template", templateName),
		zap.String("quote_id", doc.QuoteID.String()),
		zap.Int("bytes", buf.Len()),
		zap.Int("pages", pdf.PageCount()),
		zap.Duration("duration", time.Since(start)))
	return buf.Bytes(), nil
}

// Close implements Renderer
func (r *PDFRenderer) Close() error {
	return nil
}

func writeLineTable(pdf *gofpdf.Fpdf, tr func(string) string, width float64, title string, lines []lineView) {
	if len(lines) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")

	headers := []string{"Item", "SKU", "Qty", "Price", "Add-ons", "Total"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(width*columnWeights[i], lineHeight, tr(h), "1", 0, columnAlign(i), true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range lines {
		cells := []string{l.Name, l.SKU, l.Qty, l.Price, l.Addons, l.Total}
		for i, c := range cells {
			pdf.CellFormat(width*columnWeights[i], lineHeight, tr(c), "1", 0, columnAlign(i), false, 0, "")
		}
		pdf.Ln(-1)

		var note string
		switch {
		case l.Financing != "" && l.Notes != "":
			note = "Financed " + l.Financing + ". " + l.Notes
		case l.Financing != "":
			note = "Financed " + l.Financing
		default:
			note = l.Notes
		}
		if note != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(width, 4.5, tr(note), "LRB", "L", false)
			pdf.SetFont("Helvetica", "", 9)
		}
	}
	pdf.Ln(4)
}

func columnAlign(i int) string {
	if i < 2 {
		return "L"
	}
	return "R"
}

var _ Renderer = (*PDFRenderer)(nil)
