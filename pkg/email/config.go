package email

import "time"

// Config holds email gateway configuration.
// Every provider credential is optional; a provider is enabled only when its
// credential is set. SenderEmail and SupportEmail are used by all providers.
type Config struct {
	SenderEmail  string `env:"EMAIL_SENDER,required"`
	SupportEmail string `env:"EMAIL_SUPPORT,required"`

	APIKey              string `env:"EMAIL_API_KEY"`
	APIEndpoint         string `env:"EMAIL_API_ENDPOINT" envDefault:"https://api.resend.com/emails"`
	APIFallbackEndpoint string `env:"EMAIL_API_FALLBACK_ENDPOINT" envDefault:"https://api.resend.com/v1/emails"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkBaseURL      string `env:"POSTMARK_BASE_URL"`

	SendTimeout time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"10s"`
	DevDir      string        `env:"EMAIL_DEV_DIR"`
}
