// Package tour forwards department tour requests to the department relations officers.
package tour

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
)

const (
	templateName = "dept_tour_request"
	subject      = "Department Tour Request"
)

// Request is a visitor's ask for a department tour.
type Request struct {
	Name     string `json:"name" validate:"required,notblank"`
	Date     string `json:"date" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Comments string `json:"comments" validate:"max=5000"`
}

func (r *Request) Clean() {
	r.Name = core.CleanString(r.Name)
	r.Date = core.CleanString(r.Date)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	r.Comments = core.CleanString(r.Comments)
}

type Service struct {
	mailSvc  core.EmailService
	conf     *core.Config
	validate *validator.Validate
}

func NewService(mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
		vala.StringNotEmpty(conf.Tours.Recipient, "conf.Tours.Recipient"),
	).CheckAndPanic()
	return &Service{mailSvc: mailSvc, conf: conf, validate: validate}
}

// Request mails req to the tour recipient, replying to the requester.
func (svc *Service) Request(ctx context.Context, req Request) error {
	req.Clean()
	if err := svc.validate.Struct(req); err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: svc.conf.Tours.Recipient}},
		ReplyTo:      &mail.Address{Name: req.Name, Address: req.Email},
		Subject:      subject,
		TemplateName: templateName,
		TemplateData: req,
	}
	return errors.Wrap(svc.mailSvc.Send(ctx, msg), "sending tour request")
}
