package upload

import "time"

type Config struct {
	Bucket          string        `env:"UPLOAD_BUCKET"`
	Region          string        `env:"UPLOAD_REGION" envDefault:"us-east-1"`
	Endpoint        string        `env:"UPLOAD_ENDPOINT"`
	AccessKeyID     string        `env:"UPLOAD_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"UPLOAD_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `env:"UPLOAD_USE_PATH_STYLE" envDefault:"false"`
	MaxBytes        int64         `env:"UPLOAD_MAX_BYTES" envDefault:"104857600"`
	URLTTL          time.Duration `env:"UPLOAD_URL_TTL" envDefault:"15m"`
	AllowedTypes    []string      `env:"UPLOAD_ALLOWED_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/webp,image/gif,video/mp4,video/webm,video/quicktime"`
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}
