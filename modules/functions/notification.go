package functions

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/binder"
	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/email/templates"
	"github.com/dmitrymomot/storefront/pkg/validator"
)

type NotificationService struct {
	mailer       email.EmailSender
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewNotificationService(mailer email.EmailSender, errorHandler handler.ErrorHandler[handler.Context]) *NotificationService {
	return &NotificationService{mailer: mailer, errorHandler: errorHandler}
}

// NotificationRequest is rendered as text only; no field is trusted as HTML.
type NotificationRequest struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Heading   string `json:"heading"`
	Message   string `json:"message"`
	StoreName string `json:"storeName"`
	Tag       string `json:"tag"`
}

func (s *NotificationService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/email", handler.Wrap(s.sendEmail,
		handler.WithBinder[handler.Context, NotificationRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, NotificationRequest](s.errorHandler),
	))
	return r
}

func (s *NotificationService) sendEmail(ctx handler.Context, req NotificationRequest) handler.Response {
	req.To = strings.ToLower(strings.TrimSpace(req.To))
	req.Subject = strings.TrimSpace(req.Subject)

	if err := validator.Apply(
		validator.Required("to", req.To),
		validator.ValidEmail("to", req.To),
		validator.Required("subject", req.Subject),
		validator.MaxLen("subject", req.Subject, 200),
		singleLine("subject", req.Subject),
		validator.Required("heading", req.Heading),
		validator.MaxLen("heading", req.Heading, 200),
		validator.Required("message", req.Message),
		validator.MaxLen("message", req.Message, 10000),
		validator.MaxLen("storeName", req.StoreName, 100),
		validator.MaxLen("tag", req.Tag, 100),
	); err != nil {
		return handler.Error(err)
	}

	body, err := templates.Render(ctx, templates.Notification(templates.NotificationEmail{
		StoreName: req.StoreName,
		Heading:   req.Heading,
		Message:   req.Message,
	}))
	if err != nil {
		return handler.Error(err)
	}

	if err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   req.To,
		Subject:  req.Subject,
		BodyHTML: body,
		Tag:      req.Tag,
	}); err != nil {
		return handler.Error(err)
	}
	return handler.OK()
}

func singleLine(field, value string) validator.Rule {
	return validator.Rule{
		Check: func() bool { return !strings.ContainsAny(value, "\r\n") },
		Error: validator.ValidationError{
			Field:   field,
			Message: "must be a single line",
			Key:     "validation.single_line",
		},
	}
}
