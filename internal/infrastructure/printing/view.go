package printing

import (
	"fmt"
	"strings"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "Jan 2, 2006"

// documentView is the formatted content shared by both engines
type documentView struct {
	Heading      string
	Reference    string
	PartyName    string
	Status       string
	Term         string
	Dates        []labelValue
	IsContract   bool
	ContractName string
	Services     []lineView
	Products     []lineView
	Totals       []labelValue
}

type lineView struct {
	Name      string
	SKU       string
	Qty       string
	Price     string
	Addons    string
	Total     string
	Financing string
	Notes     string
}

type labelValue struct {
	Label string
	Value string
}

var printer = message.NewPrinter(language.English)

// titleCase builds a caser per call since a Caser carries state
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// newDocumentView formats doc for the named template
func newDocumentView(templateName string, doc appquoting.Document) (documentView, error) {
	var isContract bool
	switch templateName {
	case appquoting.TemplateQuoteDocument:
	case appquoting.TemplateContract:
		isContract = true
	default:
		return documentView{}, NewRenderError(ErrCodeUnknownTemplate, "unknown document template: "+templateName, nil)
	}

	heading := doc.Title
	if heading == "" {
		heading = titleCase(templateName)
	}

	v := documentView{
		Heading:      heading,
		Reference:    strings.ToUpper(doc.QuoteID.String()[:8]),
		PartyName:    doc.PartyName,
		Status:       titleCase(strings.ToLower(doc.Status)),
		Term:         formatTerm(doc.Term),
		IsContract:   isContract,
		ContractName: doc.ContractName,
	}
	v.Dates = appendDate(v.Dates, "Sent", doc.SentOn)
	v.Dates = appendDate(v.Dates, "Activated", doc.ActivatedOn)
	v.Dates = appendDate(v.Dates, "Expires", doc.ContractExpires)

	for _, l := range doc.Services {
		v.Services = append(v.Services, formatLine(l))
	}
	for _, l := range doc.Products {
		v.Products = append(v.Products, formatLine(l))
	}

	s := doc.Summary
	v.Totals = []labelValue{
		{"Monthly Recurring", s.Recurring.String()},
		{"One-Time", s.OneTime.String()},
		{"Subtotal", s.Subtotal.String()},
	}
	if !s.Discount.IsZero() {
		v.Totals = append(v.Totals, labelValue{"Discount", s.Discount.String()})
	}
	v.Totals = append(v.Totals,
		labelValue{"Tax", s.Tax.String()},
		labelValue{"Total", s.Total.String()},
	)
	return v, nil
}

func formatLine(l appquoting.DocumentLine) lineView {
	return lineView{
		Name:      l.Name,
		SKU:       l.SKU,
		Qty:       l.Qty.String(),
		Price:     formatAmount(l.Price),
		Addons:    formatAmount(l.Addons),
		Total:     formatAmount(l.Total),
		Financing: l.Financing,
		Notes:     l.Notes,
	}
}

// formatAmount groups thousands and fixes two decimal places
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var n int64
	if _, err := fmt.Sscan(whole, &n); err != nil {
		return fixed
	}
	out := printer.Sprintf("%d.%s", n, frac)
	if neg {
		return "-" + out
	}
	return out
}

func formatTerm(months int) string {
	switch months {
	case 0:
		return "Month to month"
	case 1:
		return "1 month"
	default:
		return fmt.Sprintf("%d months", months)
	}
}

func appendDate(dates []labelValue, label string, t *time.Time) []labelValue {
	if t == nil {
		return dates
	}
	return append(dates, labelValue{Label: label, Value: t.Format(dateLayout)})
}
