package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lms/internal/constants"
)

const (
	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Email    EmailConfig    `yaml:"email"`
	Media    MediaConfig    `yaml:"media"`
}

type ServerConfig struct {
	Name           string   `yaml:"name"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BaseURL        string   `yaml:"base_url"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// CookieConfig describes the session cookie set on login/register.
type CookieConfig struct {
	Name     string        `yaml:"name"`
	MaxAge   time.Duration `yaml:"max_age"`
	Secure   *bool         `yaml:"secure"`
	HTTPOnly *bool         `yaml:"http_only"`
	SameSite string        `yaml:"same_site"`
}

type RecoveryConfig struct {
	TokenWindow       time.Duration `yaml:"token_window"`
	TokenEntropyBytes int           `yaml:"token_entropy_bytes"`
	FrontendURL       string        `yaml:"frontend_url"`
}

type EmailConfig struct {
	SMTP SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type MediaConfig struct {
	Backend          string   `yaml:"backend"`
	Folder           string   `yaml:"folder"`
	UploadDir        string   `yaml:"upload_dir"`
	LocalRoot        string   `yaml:"local_root"`
	MaxUploadBytes   int64    `yaml:"max_upload_bytes"`
	DefaultAvatarURL string   `yaml:"default_avatar_url"`
	S3               S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url"`
	UsePathStyle  bool   `yaml:"use_path_style"`
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying env overrides, validation
// and defaults in that order.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LMS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LMS_SMTP_PASSWORD"); v != "" {
		c.Email.SMTP.Password = v
	}
	if v := os.Getenv("LMS_S3_SECRET_KEY"); v != "" {
		c.Media.S3.SecretKey = v
	}
	if v := os.Getenv("LMS_FRONTEND_URL"); v != "" {
		c.Recovery.FrontendURL = v
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Recovery.FrontendURL == "" {
		return fmt.Errorf("recovery.frontend_url is required")
	}
	if c.Recovery.TokenEntropyBytes != 0 && c.Recovery.TokenEntropyBytes < 16 {
		return fmt.Errorf("recovery.token_entropy_bytes must be at least 16")
	}
	if c.Recovery.TokenWindow < 0 {
		return fmt.Errorf("recovery.token_window must not be negative")
	}
	if c.Email.SMTP.Host == "" {
		return fmt.Errorf("email.smtp.host is required")
	}
	if c.Email.SMTP.Port == 0 {
		return fmt.Errorf("email.smtp.port is required")
	}
	if c.Email.SMTP.From == "" {
		return fmt.Errorf("email.smtp.from is required")
	}
	switch c.Media.Backend {
	case "", MediaBackendLocal:
	case MediaBackendS3:
		if c.Media.S3.Bucket == "" {
			return fmt.Errorf("media.s3.bucket is required for the s3 backend")
		}
		if c.Media.S3.Region == "" {
			return fmt.Errorf("media.s3.region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("media.backend must be %q or %q", MediaBackendLocal, MediaBackendS3)
	}
	if _, ok := parseSameSite(c.Cookie.SameSite); !ok {
		return fmt.Errorf("cookie.same_site must be one of lax, strict, none")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "LMS Server"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/lms.db"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = "token"
	}
	if c.Cookie.MaxAge == 0 {
		c.Cookie.MaxAge = 7 * 24 * time.Hour
	}
	if c.Cookie.Secure == nil {
		c.Cookie.Secure = boolPtr(true)
	}
	if c.Cookie.HTTPOnly == nil {
		c.Cookie.HTTPOnly = boolPtr(true)
	}
	if c.Cookie.SameSite == "" {
		c.Cookie.SameSite = "lax"
	}
	if c.Recovery.TokenWindow == 0 {
		c.Recovery.TokenWindow = 15 * time.Minute
	}
	if c.Recovery.TokenEntropyBytes == 0 {
		c.Recovery.TokenEntropyBytes = 20
	}
	c.Recovery.FrontendURL = strings.TrimRight(c.Recovery.FrontendURL, "/")
	if c.Media.Backend == "" {
		c.Media.Backend = MediaBackendLocal
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "lms"
	}
	if c.Media.UploadDir == "" {
		c.Media.UploadDir = "./uploads"
	}
	if c.Media.LocalRoot == "" {
		c.Media.LocalRoot = "./data/media"
	}
	if c.Media.MaxUploadBytes == 0 {
		c.Media.MaxUploadBytes = 200 << 20
	}
	if c.Media.DefaultAvatarURL == "" {
		c.Media.DefaultAvatarURL = strings.TrimRight(c.Server.BaseURL, "/") + constants.DefaultAvatarPath
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SameSiteMode returns the http.SameSite value for the configured cookie.
func (c CookieConfig) SameSiteMode() http.SameSite {
	mode, _ := parseSameSite(c.SameSite)
	return mode
}

func (c CookieConfig) IsSecure() bool {
	return c.Secure == nil || *c.Secure
}

func (c CookieConfig) IsHTTPOnly() bool {
	return c.HTTPOnly == nil || *c.HTTPOnly
}

func parseSameSite(raw string) (http.SameSite, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "lax":
		return http.SameSiteLaxMode, true
	case "strict":
		return http.SameSiteStrictMode, true
	case "none":
		return http.SameSiteNoneMode, true
	default:
		return http.SameSiteDefaultMode, false
	}
}

func boolPtr(v bool) *bool {
	return &v
}
