// Package emailsvc implements core.EmailService over SendGrid and the console.
package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

func subjectPrefix(conf *core.Config) string {
	return "[" + conf.AppName + "] "
}

// render writes msg the way an SMTP relay would receive it.
func render(from mail.Address, subject string, msg core.EmailMessage, date time.Time) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "From: %s\r\n", from.String())
	_, _ = fmt.Fprintf(&b, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(&b, "Cc: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(&b, "Bcc: %s\r\n", joinAddresses(msg.Bcc))
	}
	if msg.ReplyTo != nil {
		_, _ = fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo.String())
	}
	_, _ = fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	_, _ = fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	if msg.Category != "" {
		_, _ = fmt.Fprintf(&b, "X-Category: %s\r\n", msg.Category)
	}
	_, _ = fmt.Fprint(&b, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprint(&b, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	_, _ = fmt.Fprintf(&b, "%s\r\n", msg.Body)
	return b.String()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
