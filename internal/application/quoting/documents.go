package quoting

import (
	"context"
	"fmt"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"go.uber.org/zap"
)

// party is the account or lead a quote is addressed to
type party struct {
	Name      string
	Primary   Recipient
	Admin     Recipient
	IsAccount bool
}

// partyDirectory resolves the owning party of a quote
type partyDirectory struct {
	accountRepo partner.AccountRepository
	leadRepo    partner.LeadRepository
}

func (d partyDirectory) of(ctx context.Context, q *quoting.Quote) (party, error) {
	if q.AccountID != nil {
		a, err := d.accountRepo.FindByIDForTenant(ctx, q.TenantID, *q.AccountID)
		if err != nil {
			return party{}, err
		}
		admin := a.AdminContact()
		return party{
			Name:      a.Name,
			Primary:   Recipient{Name: a.Primary.Name, Email: a.Primary.Email},
			Admin:     Recipient{Name: admin.Name, Email: admin.Email},
			IsAccount: true,
		}, nil
	}
	if q.LeadID != nil {
		l, err := d.leadRepo.FindByIDForTenant(ctx, q.TenantID, *q.LeadID)
		if err != nil {
			return party{}, err
		}
		r := Recipient{Name: l.Contact.Name, Email: l.Contact.Email}
		return party{Name: l.Company, Primary: r, Admin: r}, nil
	}
	return party{}, shared.ErrNotFound
}

// buildDocument assembles the rendering context for a quote or contract
func buildDocument(q *quoting.Quote, refs catalog.Refs, partyName, title string, summary quoting.Summary) Document {
	doc := Document{
		QuoteID:         q.ID,
		Title:           title,
		PartyName:       partyName,
		Status:          q.Status.String(),
		Term:            q.Term,
		SentOn:          q.SentOn,
		ActivatedOn:     q.ActivatedOn,
		ContractExpires: q.ContractExpires,
		ContractName:    q.ContractName,
		Summary:         summary,
	}
	for _, item := range q.ServiceItems(refs) {
		doc.Services = append(doc.Services, documentLine(item, refs))
	}
	for _, item := range q.ProductItems(refs) {
		doc.Products = append(doc.Products, documentLine(item, refs))
	}
	return doc
}

func documentLine(item *quoting.QuoteItem, refs catalog.Refs) DocumentLine {
	line := DocumentLine{
		Qty:    item.Qty,
		Price:  item.Price,
		Addons: item.AddonTotal,
		Total:  item.LineTotal(),
		Notes:  item.Notes,
	}
	if ci, ok := refs.Of(item.CatalogItemID).Item(); ok {
		line.Name = ci.Name
		line.SKU = ci.SKU
	}
	if item.IsFinanced() {
		line.Financing = fmt.Sprintf("%d x %s", *item.Payments, *item.Frequency)
	}
	return line
}

// deliverer renders documents and hands notifications to the delivery system.
// Both steps run with their own timeouts and only log their failures.
type deliverer struct {
	renderer DocumentRenderer
	notifier Notifier
	opts     Options
	logger   *zap.Logger
}

func (d deliverer) render(ctx context.Context, template string, doc Document) []Attachment {
	if d.renderer == nil {
		return nil
	}
	renderCtx, cancel := withTimeout(ctx, d.opts.RenderTimeout)
	defer cancel()

	data, err := d.renderer.Render(renderCtx, template, doc)
	if err != nil {
		d.logger.Warn("Document rendering failed, sending without attachment",
			zap.String("quote_id", doc.QuoteID.String()),
			zap.String("template", template),
			zap.Error(err))
		return nil
	}
	return []Attachment{{
		Name:     fmt.Sprintf("%s-%s.pdf", template, doc.QuoteID.String()[:8]),
		MimeType: "application/pdf",
		Data:     data,
	}}
}

// deliver reports whether the notification was accepted for delivery
func (d deliverer) deliver(ctx context.Context, n Notification) bool {
	if d.notifier == nil {
		return false
	}
	if n.Recipient.Email == "" {
		d.logger.Warn("Notification skipped, recipient has no email",
			zap.String("template", n.Template))
		return false
	}
	notifyCtx, cancel := withTimeout(ctx, d.opts.NotifyTimeout)
	defer cancel()

	if err := d.notifier.Deliver(notifyCtx, n); err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("template", n.Template),
			zap.String("recipient", n.Recipient.Email),
			zap.Error(err))
		return false
	}
	return true
}

func recordActivity(ctx context.Context, recorder ActivityRecorder, logger *zap.Logger, a Activity) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, a); err != nil {
		logger.Warn("Failed to record activity",
			zap.String("type", a.Type),
			zap.String("subject_id", a.SubjectID.String()),
			zap.Error(err))
	}
}
