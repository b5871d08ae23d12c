package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/pkg/sanitizer"
	"github.com/dmitrymomot/storefront/pkg/validator"
)

// Presigner is the subset of *s3.PresignClient the signer needs.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Request describes the object a client wants to upload.
type Request struct {
	TenantID    string `json:"tenantId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// SignedUpload is what the client needs to perform the PUT.
type SignedUpload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Signer creates presigned PUT requests. It is safe for concurrent use.
type Signer struct {
	presigner    Presigner
	bucket       string
	maxBytes     int64
	ttl          time.Duration
	allowedTypes []string
	now          func() time.Time
}

type Option func(*signerOptions)

type signerOptions struct {
	presigner     Presigner
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
	now           func() time.Time
}

// WithPresigner sets a pre-configured presigner. Useful for testing.
func WithPresigner(p Presigner) Option {
	return func(o *signerOptions) {
		o.presigner = p
	}
}

// WithHTTPClient sets the HTTP client used by the AWS SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *signerOptions) {
		o.httpClient = client
	}
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *signerOptions) {
		o.configOptions = append(o.configOptions, option)
	}
}

// WithClock overrides time.Now for key and expiry computation.
func WithClock(now func() time.Time) Option {
	return func(o *signerOptions) {
		o.now = now
	}
}

// NewSigner builds a signer for cfg.Bucket.
func NewSigner(ctx context.Context, cfg Config, opts ...Option) (*Signer, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	options := &signerOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}

	presigner := options.presigner
	if presigner == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}
		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}
		awsOptions = append(awsOptions, options.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.UsePathStyle
		})
		presigner = s3.NewPresignClient(client)
	}

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 100 << 20
	}

	return &Signer{
		presigner:    presigner,
		bucket:       cfg.Bucket,
		maxBytes:     maxBytes,
		ttl:          ttl,
		allowedTypes: normalizeTypes(cfg.AllowedTypes),
		now:          options.now,
	}, nil
}

// Sign validates req and returns a presigned PUT for a fresh object key.
func (s *Signer) Sign(ctx context.Context, req Request) (*SignedUpload, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if err := validator.Apply(
		validator.Required("tenantId", req.TenantID),
		validator.ValidSlug("tenantId", req.TenantID),
		validator.Required("filename", req.Filename),
		validator.MaxLen("filename", req.Filename, 255),
		validator.Required("contentType", contentType),
		mediaType("contentType", contentType),
		validator.InList("contentType", contentType, s.allowedTypes),
		validator.MinNum("size", req.Size, 1),
		validator.MaxNum("size", req.Size, s.maxBytes),
	); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := ObjectKey(req.TenantID, req.Filename, now)

	out, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(req.Size),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, classifyS3Error(err, "presign upload")
	}

	headers := make(map[string]string, len(out.SignedHeader))
	for name, values := range out.SignedHeader {
		if len(values) == 0 || strings.EqualFold(name, "host") {
			continue
		}
		headers[name] = values[0]
	}

	method := out.Method
	if method == "" {
		method = http.MethodPut
	}

	return &SignedUpload{
		URL:       out.URL,
		Method:    method,
		Key:       key,
		Headers:   headers,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// ObjectKey builds tenants/{tenant}/{yyyy}/{mm}/{uuid}{ext}.
func ObjectKey(tenantID, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(sanitizer.SanitizeFilename(filename)))
	return fmt.Sprintf("tenants/%s/%04d/%02d/%s%s",
		tenantID, at.Year(), int(at.Month()), uuid.NewString(), ext)
}

func mediaType(field, contentType string) validator.Rule {
	return validator.Rule{
		Check: func() bool {
			return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
		},
		Error: validator.ValidationError{
			Field:   field,
			Message: "must be an image or video type",
			Key:     "validation.media_type",
		},
	}
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func classifyS3Error(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
		default:
			return fmt.Errorf("%w: %s operation (code: %s): %w", ErrPresignFailed, operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%w: %s operation: %w", ErrPresignFailed, operation, err)
}
