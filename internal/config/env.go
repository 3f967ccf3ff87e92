package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageFS    = "fs"
	StorageS3    = "s3"
	StorageMinio = "minio"
)

// DefaultJWTSecret is the development secret used when JWT_SECRET is unset.
const DefaultJWTSecret = "devsecret"

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	AuthRequired    bool          `env:"AUTH_REQUIRED" envDefault:"false"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`

	Mongo     Mongo     `envPrefix:"MONGODB_"`
	JWT       JWT       `envPrefix:"JWT_"`
	Storage   Storage   `envPrefix:"STORAGE_"`
	AWS       AWS       `envPrefix:"AWS_"`
	Minio     Minio     `envPrefix:"MINIO_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
}

// Mongo contains document store connection parameters.
type Mongo struct {
	URI            string        `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database       string        `env:"DATABASE" envDefault:"outreach"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// JWT contains session token parameters.
type JWT struct {
	Secret string        `env:"SECRET" envDefault:"devsecret"`
	TTL    time.Duration `env:"TTL" envDefault:"48h"`
}

// Storage selects and configures the attachment store.
type Storage struct {
	Driver       string `env:"DRIVER" envDefault:"fs"`
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"uploads"`
	PublicPrefix string `env:"PUBLIC_PREFIX" envDefault:"/uploads"`
}

// AWS contains S3 parameters, used when STORAGE_DRIVER=s3.
type AWS struct {
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Region    string `env:"REGION" envDefault:"us-east-2"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"outreach-attachments"`
	Endpoint  string `env:"ENDPOINT"`
}

// Minio contains MinIO parameters, used when STORAGE_DRIVER=minio.
type Minio struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"outreach-attachments"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Redis backs the login/register rate limiter. Empty Addr disables it.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
}

type RateLimit struct {
	Login    int           `env:"LOGIN" envDefault:"10"`
	Register int           `env:"REGISTER" envDefault:"5"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// LoadConfig loads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Mongo.URI) == "" {
		return fmt.Errorf("MONGODB_URI not set")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.AuthRequired && c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from the default when AUTH_REQUIRED is set")
	}
	if c.JWT.TTL < 24*time.Hour || c.JWT.TTL > 48*time.Hour {
		return fmt.Errorf("JWT_TTL must be between 24h and 48h, got %s", c.JWT.TTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	switch c.Storage.Driver {
	case StorageFS:
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("STORAGE_UPLOAD_DIR not set")
		}
	case StorageS3:
		if c.AWS.AccessKey == "" || c.AWS.SecretKey == "" {
			return fmt.Errorf("AWS credentials not set")
		}
		if c.AWS.Bucket == "" {
			return fmt.Errorf("AWS_BUCKET_NAME not set")
		}
	case StorageMinio:
		if c.Minio.AccessKey == "" || c.Minio.SecretKey == "" {
			return fmt.Errorf("MinIO credentials not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Redis.Addr != "" && (c.RateLimit.Login <= 0 || c.RateLimit.Register <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limits must be positive when REDIS_ADDR is set")
	}

	return nil
}
