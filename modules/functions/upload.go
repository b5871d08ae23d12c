package functions

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/binder"
	"github.com/dmitrymomot/storefront/pkg/upload"
)

// URLSigner issues presigned upload URLs.
type URLSigner interface {
	Sign(ctx context.Context, req upload.Request) (*upload.SignedUpload, error)
}

type UploadService struct {
	signer       URLSigner
	errorHandler handler.ErrorHandler[handler.Context]
}

// NewUploadService creates the upload endpoints. A nil signer answers 503
// so deployments without a bucket keep the route shape.
func NewUploadService(signer URLSigner, errorHandler handler.ErrorHandler[handler.Context]) *UploadService {
	return &UploadService{signer: signer, errorHandler: errorHandler}
}

func (s *UploadService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/sign", handler.Wrap(s.sign,
		handler.WithBinder[handler.Context, upload.Request](binder.JSON()),
		handler.WithErrorHandler[handler.Context, upload.Request](s.errorHandler),
	))
	return r
}

func (s *UploadService) sign(ctx handler.Context, req upload.Request) handler.Response {
	if s.signer == nil {
		return handler.Error(handler.ErrServiceUnavailable)
	}
	signed, err := s.signer.Sign(ctx, req)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(signed)
}
