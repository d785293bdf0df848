package quoting

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleService runs the send and direct-execute transitions of a quote
type LifecycleService struct {
	txScope        TransactionScope
	quoteRepo      quoting.QuoteRepository
	accountRepo    partner.AccountRepository
	parties        partyDirectory
	catalog        catalog.Provider
	storage        FileStorage
	activities     ActivityRecorder
	deliverer      deliverer
	opts           Options
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	txScope TransactionScope,
	quoteRepo quoting.QuoteRepository,
	accountRepo partner.AccountRepository,
	leadRepo partner.LeadRepository,
	provider catalog.Provider,
	storage FileStorage,
	renderer DocumentRenderer,
	notifier Notifier,
	activities ActivityRecorder,
	opts Options,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		txScope:     txScope,
		quoteRepo:   quoteRepo,
		accountRepo: accountRepo,
		parties:     partyDirectory{accountRepo: accountRepo, leadRepo: leadRepo},
		catalog:     provider,
		storage:     storage,
		activities:  activities,
		deliverer:   deliverer{renderer: renderer, notifier: notifier, opts: opts, logger: logger},
		opts:        opts,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *LifecycleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Send presents the quote to the customer and notifies the lead or account contact.
// Co-term quotes use their own template and skip the generic activity entry.
func (s *LifecycleService) Send(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_lifecycle", "send",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID.String()))
	defer span.End()

	now := s.opts.now()
	var (
		q    *quoting.Quote
		refs catalog.Refs
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		q, err = repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if err := q.MarkSent(now); err != nil {
			return err
		}
		refs, err = resolveRefs(ctx, s.catalog, q)
		if err != nil {
			return err
		}
		return repos.QuoteRepo().Save(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary := quoting.Summarize(q, refs, s.opts.Settings, now)
	template := TemplateQuoteSent
	if q.IsCoterm() {
		template = TemplateCotermQuoteSent
	}

	p, err := s.parties.of(ctx, q)
	if err != nil {
		s.logger.Warn("Quote sent but recipient could not be resolved",
			zap.String("quote_id", q.ID.String()),
			zap.Error(err))
	} else {
		doc := buildDocument(q, refs, p.Name, "Quote", summary)
		s.deliverer.deliver(ctx, Notification{
			TenantID:    tenantID,
			Template:    template,
			Recipient:   p.Primary,
			Models:      notificationModels(q, p.Name, summary),
			Attachments: s.deliverer.render(ctx, TemplateQuoteDocument, doc),
		})
	}
	publishEvents(ctx, s.eventPublisher, s.logger, q)
	resp := ToQuoteResponse(q, refs, summary)

	if q.IsCoterm() {
		return &resp, nil
	}

	recordActivity(ctx, s.activities, s.logger, Activity{
		TenantID:  tenantID,
		Type:      ActivityQuoteSent,
		SubjectID: q.ID,
		Message:   "Quote sent",
		Detail:    map[string]any{"template": template},
		At:        now,
	})
	s.logger.Info("Quote sent", zap.String("quote_id", q.ID.String()))
	return &resp, nil
}

// ExecuteDirect signs the quote into a contract bound to the target account.
// Editability is checked before the signature is stored and again under the
// row lock, so two concurrent executions cannot both succeed.
func (s *LifecycleService) ExecuteDirect(ctx context.Context, tenantID, quoteID uuid.UUID, req ExecuteDirectRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_lifecycle", "execute_direct",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID.String()))
	defer span.End()

	if strings.TrimSpace(req.SignerName) == "" {
		return nil, shared.NewDomainError("INVALID_SIGNER", "Signer name is required")
	}
	signature, mimeType, ext, err := decodeSignature(req.Signature)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, req.AccountID)
	if err != nil {
		return nil, err
	}

	current, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if !current.IsEditable() {
		return nil, shared.ErrEditingLocked
	}
	if current.IsCoterm() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Co-term quotes must be executed as a co-term")
	}

	fileID, err := s.storage.Store(ctx, fmt.Sprintf("signature-%s%s", quoteID, ext), mimeType, signature, quoteID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store signature: %w", err)
	}

	now := s.opts.now()
	var (
		q    *quoting.Quote
		refs catalog.Refs
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		q, err = repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if err := q.ExecuteDirect(account.ID, strings.TrimSpace(req.SignerName), req.SignerIP, fileID, now); err != nil {
			return err
		}
		refs, err = resolveRefs(ctx, s.catalog, q)
		if err != nil {
			return err
		}
		return repos.QuoteRepo().Save(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.discardSignature(ctx, fileID)
		return nil, err
	}

	recordActivity(ctx, s.activities, s.logger, Activity{
		TenantID:  tenantID,
		Type:      ActivityQuoteExecuted,
		SubjectID: q.ID,
		Message:   "Quote executed by " + q.ContractName,
		Detail:    map[string]any{"account_id": account.ID.String(), "signature_file_id": fileID},
		At:        now,
	})
	publishEvents(ctx, s.eventPublisher, s.logger, q)

	s.logger.Info("Quote executed",
		zap.String("quote_id", q.ID.String()),
		zap.String("account_id", account.ID.String()))

	resp := ToQuoteResponse(q, refs, quoting.Summarize(q, refs, s.opts.Settings, now))
	return &resp, nil
}

// discardSignature removes a signature whose execution was rolled back
func (s *LifecycleService) discardSignature(ctx context.Context, fileID string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), fileID); err != nil {
		s.logger.Warn("Failed to delete orphaned signature",
			zap.String("file_id", fileID),
			zap.Error(err))
	}
}

// decodeSignature accepts raw base64 or a data URL and returns the image bytes,
// their MIME type and a file extension
func decodeSignature(payload string) ([]byte, string, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", "", shared.NewDomainError("INVALID_SIGNATURE", "Signature is required")
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", "", shared.NewDomainError("INVALID_SIGNATURE", "Malformed signature data URL")
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", shared.WrapDomainError("INVALID_SIGNATURE", "Signature is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, "", "", shared.NewDomainError("INVALID_SIGNATURE", "Signature is empty")
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", "", shared.NewDomainError("INVALID_SIGNATURE", "Signature must be an image, got "+mt.String())
	}
	return data, mt.String(), mt.Extension(), nil
}

func notificationModels(q *quoting.Quote, partyName string, summary quoting.Summary) map[string]any {
	return map[string]any{
		"quote_id":   q.ID.String(),
		"party_name": partyName,
		"status":     q.Status.String(),
		"term":       q.Term,
		"recurring":  summary.Recurring.String(),
		"one_time":   summary.OneTime.String(),
		"total":      summary.Total.String(),
	}
}
