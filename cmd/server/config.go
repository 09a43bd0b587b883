package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	UploadRoot     string `env:"UPLOAD_ROOT,required=true"`

	MaxAttachmentSize int64 `env:"MAX_ATTACHMENT_SIZE,default=5242880"`
	MaxContentLength  int   `env:"MAX_CONTENT_LENGTH,default=500"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`

	AuthSecretKey        string        `env:"AUTH_SECRET_KEY,required=true"`
	AccessTokenDuration  time.Duration `env:"ACCESS_TOKEN_DURATION,default=30m"`
	RefreshTokenDuration time.Duration `env:"REFRESH_TOKEN_DURATION,default=1h"`

	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN,default=http://localhost:5173"`

	JanitorInterval time.Duration `env:"JANITOR_INTERVAL,default=10m"`
	JanitorMinAge   time.Duration `env:"JANITOR_MIN_AGE,default=1h"`
}
