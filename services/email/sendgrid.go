package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/sync/semaphore"

	"github.com/trezcool/academia/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	maxInFlight = 4
)

var sendgridAPI = sendgrid.API // mockable

// SendgridService delivers messages through the SendGrid v3 API, at most maxInFlight at once.
// Failed deliveries are logged, never retried.
type SendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

var _ core.EmailService = (*SendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *SendgridService {
	from := conf.Mail.DefaultFromEmail
	return &SendgridService{
		key:        conf.Mail.SendgridAPIKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: subjectPrefix(conf),
		logger:     logger,
		sem:        semaphore.NewWeighted(maxInFlight),
	}
}

func (svc *SendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.Deliverable() {
			continue
		}
		msg := *msg
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			if err := svc.send(context.Background(), msg); err != nil {
				svc.logger.Error("sending email", err, map[string]interface{}{"subject": msg.Subject, "category": msg.Category})
			}
		}()
	}
}

// Wait blocks until every pending delivery has finished.
func (svc *SendgridService) Wait() {
	svc.wg.Wait()
}

func (svc *SendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	if msg.ReplyTo != nil {
		m.SetReplyTo(sgEmail(*msg.ReplyTo))
	}
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *SendgridService) send(ctx context.Context, msg core.EmailMessage) error {
	if err := svc.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer svc.sem.Release(1)

	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgridAPI(req)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
