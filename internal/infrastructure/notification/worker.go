package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"text/template"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func newMailTemplate(name, subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(body)),
	}
}

var mailTemplates = map[string]mailTemplate{
	appquoting.TemplateQuoteSent: newMailTemplate(appquoting.TemplateQuoteSent,
		`Your quote for {{.party_name}}`,
		`Hello {{.recipient_name}},

Your quote for {{.party_name}} is attached.

Term: {{.term}} months
Monthly recurring: {{.recurring}}
One-time: {{.one_time}}
Total: {{.total}}

Reply to this message with any questions.
`),
	appquoting.TemplateCotermQuoteSent: newMailTemplate(appquoting.TemplateCotermQuoteSent,
		`Updated agreement for {{.party_name}}`,
		`Hello {{.recipient_name}},

An addition to your existing agreement for {{.party_name}} is attached.
It ends together with your current contract.

Monthly recurring: {{.recurring}}
One-time: {{.one_time}}
Total: {{.total}}
`),
	appquoting.TemplateCotermExecuted: newMailTemplate(appquoting.TemplateCotermExecuted,
		`Agreement executed for {{.party_name}}`,
		`Hello {{.recipient_name}},

Your co-termed agreement is now active. {{.migrated_items}} service(s) were moved onto it.
The executed contract is attached.

Monthly recurring: {{.recurring}}
Total: {{.total}}
`),
	appquoting.TemplateInvoiceSent: newMailTemplate(appquoting.TemplateInvoiceSent,
		`Invoice {{.number}}`,
		`Hello {{.recipient_name}},

Invoice {{.number}} for {{.total}} is due on {{.due_date}}.
`),
}

// Processor handles delivery tasks on the worker
type Processor struct {
	mailer Mailer
	from   mail.Address
	logger *zap.Logger
}

// NewProcessor creates a Processor sending as from
func NewProcessor(mailer Mailer, from string, logger *zap.Logger) *Processor {
	return &Processor{mailer: mailer, from: mail.Address{Address: from}, logger: logger}
}

// HandleDeliveryTask renders and sends one notification
func (p *Processor) HandleDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var n appquoting.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if n.Recipient.Email == "" {
		return fmt.Errorf("notification has no recipient: %w", asynq.SkipRetry)
	}

	msg, err := p.compose(n)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := p.mailer.Send(ctx, msg); err != nil {
		retry, _ := asynq.GetRetryCount(ctx)
		p.logger.Warn("Mail delivery failed",
			zap.String("template", n.Template),
			zap.String("recipient", n.Recipient.Email),
			zap.Int("retry", retry),
			zap.Error(err))
		return err
	}

	p.logger.Info("Mail delivered",
		zap.String("template", n.Template),
		zap.String("recipient", n.Recipient.Email),
		zap.Int("attachments", len(msg.Attachments)))
	return nil
}

func (p *Processor) compose(n appquoting.Notification) (Message, error) {
	tmpl, ok := mailTemplates[n.Template]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification template %q", n.Template)
	}

	data := make(map[string]any, len(n.Models)+1)
	for k, v := range n.Models {
		data[k] = v
	}
	data["recipient_name"] = n.Recipient.Name
	if n.Recipient.Name == "" {
		data["recipient_name"] = "there"
	}

	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}

	return Message{
		From:        p.from,
		To:          mail.Address{Name: n.Recipient.Name, Address: n.Recipient.Email},
		Subject:     subject.String(),
		Body:        body.String(),
		Attachments: n.Attachments,
	}, nil
}

// NewServer creates the asynq worker server and its handler mux
func NewServer(redis config.RedisConfig, cfg config.NotificationConfig, p *Processor, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(redisOpt(redis), asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Notification task failed",
				zap.String("type", task.Type()),
				zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDeliver, p.HandleDeliveryTask)
	return srv, mux
}
