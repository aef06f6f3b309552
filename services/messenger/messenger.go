// Package messenger delivers short texts to people by email, or by SMS through
// their carrier's email gateway when they configured one.
package messenger

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

const emailSubject = "Event reminder"

type Messenger struct {
	mailSvc core.EmailService
	enabled bool
}

func New(mailSvc core.EmailService, conf *core.Config) *Messenger {
	return &Messenger{mailSvc: mailSvc, enabled: conf.Notifications.Enabled}
}

// Send delivers text to p and waits for the delivery to be accepted.
func (m *Messenger) Send(ctx context.Context, p person.Person, text string) error {
	if !m.enabled {
		return nil
	}

	msg := &core.EmailMessage{BodyStr: text}
	if addr := p.SMSAddress(); addr != "" {
		// gateways prepend the subject to the text
		msg.To = []mail.Address{{Address: addr}}
	} else {
		if p.Email == "" {
			return errors.Errorf("%s has no email address", p.Username)
		}
		msg.To = []mail.Address{{Name: p.Name, Address: p.Email}}
		msg.Subject = emailSubject
	}
	return errors.Wrap(m.mailSvc.Send(ctx, msg), "sending message")
}
