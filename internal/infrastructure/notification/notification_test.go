package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleNotification() appquoting.Notification {
	return appquoting.Notification{
		TenantID:  uuid.New(),
		Template:  appquoting.TemplateQuoteSent,
		Recipient: appquoting.Recipient{Name: "Pat Doe", Email: "pat@acme.test"},
		Models: map[string]any{
			"quote_id":   uuid.NewString(),
			"party_name": "Acme Corp",
			"term":       36,
			"recurring":  "2550.00 USD",
			"one_time":   "900.00 USD",
			"total":      "3524.25 USD",
		},
		Attachments: []appquoting.Attachment{{Name: "quote-a1b2c3d4.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.3 body")}},
	}
}

var notificationCfg = config.NotificationConfig{Queue: "notifications", MaxRetry: 5, Timeout: time.Minute}

func TestAsynqNotifier_Deliver(t *testing.T) {
	ctx := context.Background()
	n := sampleNotification()

	t.Run("enqueues the notification as JSON", func(t *testing.T) {
		client := new(mockEnqueuer)
		client.On("EnqueueContext", ctx, mock.MatchedBy(func(task *asynq.Task) bool {
			var got appquoting.Notification
			if err := json.Unmarshal(task.Payload(), &got); err != nil {
				return false
			}
			return task.Type() == TypeDeliver &&
				got.Recipient.Email == "pat@acme.test" &&
				len(got.Attachments) == 1 &&
				string(got.Attachments[0].Data) == "%PDF-1.3 body"
		}), mock.Anything).Return(&asynq.TaskInfo{ID: "task-1", Queue: "notifications"}, nil)

		notifier := NewAsynqNotifier(client, notificationCfg, zap.NewNop())
		require.NoError(t, notifier.Deliver(ctx, n))
		client.AssertExpectations(t)

		opts := client.Calls[0].Arguments.Get(2).([]asynq.Option)
		assert.Len(t, opts, 3)
		assert.Equal(t, asynq.QueueOpt, opts[0].Type())
		assert.Equal(t, "notifications", opts[0].Value())
	})

	t.Run("enqueue failure is returned", func(t *testing.T) {
		client := new(mockEnqueuer)
		client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

		err := NewAsynqNotifier(client, notificationCfg, zap.NewNop()).Deliver(ctx, n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}

func TestNew(t *testing.T) {
	notifier, closeFn := New(config.NotificationConfig{Driver: "log"}, config.RedisConfig{}, zap.NewNop())
	assert.IsType(t, &LogNotifier{}, notifier)
	assert.NoError(t, closeFn())
	assert.NoError(t, notifier.Deliver(context.Background(), sampleNotification()))

	notifier, closeFn = New(config.NotificationConfig{Driver: "asynq", Queue: "q"}, config.RedisConfig{Host: "127.0.0.1", Port: 6379}, zap.NewNop())
	assert.IsType(t, &AsynqNotifier{}, notifier)
	assert.NoError(t, closeFn())
}

func taskFor(t *testing.T, n appquoting.Notification) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(n)
	require.NoError(t, err)
	return asynq.NewTask(TypeDeliver, payload)
}

func TestProcessor_HandleDeliveryTask(t *testing.T) {
	ctx := context.Background()

	t.Run("renders and sends the mail", func(t *testing.T) {
		mailer := &recordingMailer{}
		p := NewProcessor(mailer, "quotes@seller.test", zap.NewNop())

		require.NoError(t, p.HandleDeliveryTask(ctx, taskFor(t, sampleNotification())))
		require.Len(t, mailer.sent, 1)
		msg := mailer.sent[0]
		assert.Equal(t, "Your quote for Acme Corp", msg.Subject)
		assert.Equal(t, "pat@acme.test", msg.To.Address)
		assert.Equal(t, "quotes@seller.test", msg.From.Address)
		assert.Contains(t, msg.Body, "Hello Pat Doe,")
		assert.Contains(t, msg.Body, "Term: 36 months")
		assert.Contains(t, msg.Body, "Total: 3524.25 USD")
		require.Len(t, msg.Attachments, 1)
	})

	t.Run("invoice template", func(t *testing.T) {
		mailer := &recordingMailer{}
		p := NewProcessor(mailer, "billing@seller.test", zap.NewNop())
		n := appquoting.Notification{
			Template:  appquoting.TemplateInvoiceSent,
			Recipient: appquoting.Recipient{Email: "ap@acme.test"},
			Models:    map[string]any{"number": "INV-2024-00001", "total": "500.00", "due_date": "2024-03-31"},
		}

		require.NoError(t, p.HandleDeliveryTask(ctx, taskFor(t, n)))
		assert.Equal(t, "Invoice INV-2024-00001", mailer.sent[0].Subject)
		assert.Contains(t, mailer.sent[0].Body, "Hello there,")
		assert.Contains(t, mailer.sent[0].Body, "due on 2024-03-31")
	})

	t.Run("bad payloads are not retried", func(t *testing.T) {
		p := NewProcessor(&recordingMailer{}, "quotes@seller.test", zap.NewNop())

		err := p.HandleDeliveryTask(ctx, asynq.NewTask(TypeDeliver, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)

		n := sampleNotification()
		n.Template = "welcome"
		err = p.HandleDeliveryTask(ctx, taskFor(t, n))
		assert.ErrorIs(t, err, asynq.SkipRetry)

		n = sampleNotification()
		n.Recipient.Email = ""
		err = p.HandleDeliveryTask(ctx, taskFor(t, n))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("send failures are retried", func(t *testing.T) {
		p := NewProcessor(&recordingMailer{err: errors.New("relay refused")}, "quotes@seller.test", zap.NewNop())

		err := p.HandleDeliveryTask(ctx, taskFor(t, sampleNotification()))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestMessage_Bytes(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("plain text", func(t *testing.T) {
		msg := Message{
			From:    mail.Address{Address: "quotes@seller.test"},
			To:      mail.Address{Name: "Pat Doe", Address: "pat@acme.test"},
			Subject: "Angebot für Acme",
			Body:    "Hello",
		}
		raw, err := msg.Bytes(date)
		require.NoError(t, err)

		parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
		require.NoError(t, err)
		subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
		require.NoError(t, err)
		assert.Equal(t, "Angebot für Acme", subject)
		assert.Equal(t, `"Pat Doe" <pat@acme.test>`, parsed.Header.Get("To"))
		body, _ := io.ReadAll(parsed.Body)
		assert.Equal(t, "Hello\r\n", string(body))
	})

	t.Run("attachments make a multipart message", func(t *testing.T) {
		pdf := []byte(strings.Repeat("%PDF-1.3 ", 40))
		msg := Message{
			From:        mail.Address{Address: "quotes@seller.test"},
			To:          mail.Address{Address: "pat@acme.test"},
			Subject:     "Quote",
			Body:        "See attached",
			Attachments: []appquoting.Attachment{{Name: "quote.pdf", MimeType: "application/pdf", Data: pdf}},
		}
		raw, err := msg.Bytes(date)
		require.NoError(t, err)

		parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
		require.NoError(t, err)
		mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/mixed", mediaType)

		reader := multipart.NewReader(parsed.Body, params["boundary"])
		text, err := reader.NextPart()
		require.NoError(t, err)
		body, _ := io.ReadAll(text)
		assert.Equal(t, "See attached", string(body))

		att, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "quote.pdf", att.FileName())
		assert.Equal(t, "application/pdf", att.Header.Get("Content-Type"))
		encoded, _ := io.ReadAll(att)
		for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
			assert.LessOrEqual(t, len(line), 76)
		}
	})
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.NotificationConfig{SMTPHost: "smtp.seller.test", SMTPPort: 2525, SMTPUsername: "u", SMTPPassword: "p"})
	var gotAddr, gotFrom string
	var gotTo []string
	m.send = func(addr string, _ smtp.Auth, from string, to []string, _ []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		return nil
	}

	err := m.Send(context.Background(), Message{
		From: mail.Address{Address: "quotes@seller.test"},
		To:   mail.Address{Address: "pat@acme.test"},
		Body: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.seller.test:2525", gotAddr)
	assert.Equal(t, "quotes@seller.test", gotFrom)
	assert.Equal(t, []string{"pat@acme.test"}, gotTo)
	assert.NotNil(t, m.auth)

	assert.IsType(t, &LogMailer{}, NewMailer(config.NotificationConfig{}, zap.NewNop()))
}
