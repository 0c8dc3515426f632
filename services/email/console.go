package emailsvc

import (
	"log"
	"net/mail"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
)

// ConsoleService prints messages instead of delivering them.
type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	logger     *log.Logger
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config, logger *log.Logger) *ConsoleService {
	return &ConsoleService{from: conf.Mail.DefaultFromEmail, subjPrefix: subjectPrefix(conf), logger: logger}
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.Deliverable() {
			continue
		}
		msg := *msg
		go svc.logger.Println(render(svc.from, svc.subjPrefix+msg.Subject, msg, time.Now()))
	}
}

// Outbox keeps the messages it is given, synchronously, for inspection in tests.
type Outbox struct {
	mu   sync.Mutex
	msgs []core.EmailMessage
}

var _ core.EmailService = (*Outbox)(nil)

func NewOutbox() *Outbox { return new(Outbox) }

func (o *Outbox) SendMessages(messages ...*core.EmailMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, msg := range messages {
		if msg.Deliverable() {
			o.msgs = append(o.msgs, *msg)
		}
	}
}

// Messages returns a copy of the messages kept so far.
func (o *Outbox) Messages() []core.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := make([]core.EmailMessage, len(o.msgs))
	copy(msgs, o.msgs)
	return msgs
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	o.msgs = nil
	o.mu.Unlock()
}
