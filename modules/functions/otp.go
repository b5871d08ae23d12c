package functions

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/binder"
	"github.com/dmitrymomot/storefront/pkg/otp"
)

// OTPFlow is the part of otp.Service the HTTP layer drives.
type OTPFlow interface {
	Issue(ctx context.Context, purpose otp.Purpose, recipient string, params otp.IssueParams) error
	Verify(ctx context.Context, purpose otp.Purpose, recipient, code string) error
	CompleteReset(ctx context.Context, recipient, newPassword string) error
}

type OTPService struct {
	flow         OTPFlow
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewOTPService(flow OTPFlow, errorHandler handler.ErrorHandler[handler.Context]) *OTPService {
	return &OTPService{flow: flow, errorHandler: errorHandler}
}

type SendSignupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type SendResetRequest struct {
	Email string `json:"email"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type CompleteResetRequest struct {
	Email         string `json:"email"`
	NewCredential string `json:"newCredential"`
}

func (s *OTPService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/signup/send", handler.Wrap(s.sendSignup,
		handler.WithBinder[handler.Context, SendSignupRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, SendSignupRequest](s.errorHandler),
	))
	r.Post("/signup/verify", handler.Wrap(s.verify(otp.PurposeSignup),
		handler.WithBinder[handler.Context, VerifyRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, VerifyRequest](s.errorHandler),
	))
	r.Post("/reset/send", handler.Wrap(s.sendReset,
		handler.WithBinder[handler.Context, SendResetRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, SendResetRequest](s.errorHandler),
	))
	r.Post("/reset/verify", handler.Wrap(s.verify(otp.PurposePasswordReset),
		handler.WithBinder[handler.Context, VerifyRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, VerifyRequest](s.errorHandler),
	))
	r.Post("/reset/complete", handler.Wrap(s.completeReset,
		handler.WithBinder[handler.Context, CompleteResetRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, CompleteResetRequest](s.errorHandler),
	))

	return r
}

func (s *OTPService) sendSignup(ctx handler.Context, req SendSignupRequest) handler.Response {
	if err := s.flow.Issue(ctx, otp.PurposeSignup, req.Email, otp.IssueParams{DisplayName: req.DisplayName}); err != nil {
		return handler.Error(err)
	}
	return handler.OK()
}

func (s *OTPService) sendReset(ctx handler.Context, req SendResetRequest) handler.Response {
	if err := s.flow.Issue(ctx, otp.PurposePasswordReset, req.Email, otp.IssueParams{}); err != nil {
		return handler.Error(err)
	}
	return handler.OK()
}

func (s *OTPService) verify(purpose otp.Purpose) handler.HandlerFunc[handler.Context, VerifyRequest] {
	return func(ctx handler.Context, req VerifyRequest) handler.Response {
		if err := s.flow.Verify(ctx, purpose, req.Email, req.Code); err != nil {
			return handler.Error(err)
		}
		return handler.OK()
	}
}

func (s *OTPService) completeReset(ctx handler.Context, req CompleteResetRequest) handler.Response {
	if err := s.flow.CompleteReset(ctx, req.Email, req.NewCredential); err != nil {
		return handler.Error(err)
	}
	return handler.OK()
}

// OTPErrorMapper maps classified OTP failures onto HTTP statuses. The reason
// and message of the sentinel are sent to the client; the wrapped cause is not.
func OTPErrorMapper(err error) (int, handler.ErrorDetail, bool) {
	e, ok := otp.AsError(err)
	if !ok {
		return 0, handler.ErrorDetail{}, false
	}
	return otpStatus(e.Class), handler.ErrorDetail{Code: e.Reason, Message: e.Message}, true
}

func otpStatus(class otp.Class) int {
	switch class {
	case otp.ClassValidation, otp.ClassNotFound, otp.ClassExpired:
		return http.StatusBadRequest
	case otp.ClassRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
