package config

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	TransportSMTP   = "smtp"
	TransportSES    = "ses"
	TransportMemory = "memory"

	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Application Application `yaml:"application" validate:"required"`
	Log         Log         `yaml:"log"`
	Storage     Storage     `yaml:"storage"`
	Email       Email       `yaml:"email" validate:"required"`
	Auth        Auth        `yaml:"auth"`
	Newsletter  Newsletter  `yaml:"newsletter"`
}

type Application struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port" validate:"min=0,max=65535"`
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SecureHeaders  bool          `yaml:"secure_headers"` // adds HSTS, enable behind TLS
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Storage struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=postgres memory"`
}

type Email struct {
	Transport   string        `yaml:"transport" validate:"required,oneof=smtp ses memory"`
	SenderName  string        `yaml:"sender_name"`
	SenderEmail string        `yaml:"sender_email" validate:"required,email"`
	SMTPServer  string        `yaml:"smtp_server"`
	SMTPPort    int           `yaml:"smtp_port"`
	TLSMode     string        `yaml:"tls_mode" validate:"omitempty,oneof=auto ssl none"`
	SESRegion   string        `yaml:"ses_region"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Auth struct {
	Hasher            string `yaml:"hasher" validate:"omitempty,oneof=argon2id bcrypt"`
	Argon2            Argon2 `yaml:"argon2"`
	BcryptCost        int    `yaml:"bcrypt_cost"`
	VerifyConcurrency int    `yaml:"verify_concurrency"`
}

type Argon2 struct {
	Memory      uint32 `yaml:"memory"` // KiB
	Iterations  uint32 `yaml:"iterations"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLength   uint32 `yaml:"key_length"`
}

type Newsletter struct {
	SendConcurrency int `yaml:"send_concurrency"`
}

type Private struct {
	Pg       Pg           `yaml:"pg"`
	Email    EmailSecrets `yaml:"email"`
	Operator Operator     `yaml:"operator"`
}

// Operator, when both fields are set, is created at startup if missing.
type Operator struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type EmailSecrets struct {
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	SESAccessKey string `yaml:"ses_access_key"`
	SESSecretKey string `yaml:"ses_secret_key"`
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Public.Application.Host, c.Public.Application.Port)
}

func loadPath(configPath string, output interface{}) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder, applies
// NEWSLETTER_* environment overrides and defaults, then validates.
func Load(configFolder string) (*Config, error) {
	var public Public
	if err := loadPath(path.Join(configFolder, "public.yaml"), &public); err != nil {
		return nil, err
	}

	var private Private
	if err := loadPath(path.Join(configFolder, "private.yaml"), &private); err != nil {
		return nil, err
	}

	cfg := &Config{Public: public, Private: private}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"NEWSLETTER_HOST":              &cfg.Public.Application.Host,
		"NEWSLETTER_BASE_URL":          &cfg.Public.Application.BaseURL,
		"NEWSLETTER_LOG_LEVEL":         &cfg.Public.Log.Level,
		"NEWSLETTER_STORAGE_DRIVER":    &cfg.Public.Storage.Driver,
		"NEWSLETTER_EMAIL_TRANSPORT":   &cfg.Public.Email.Transport,
		"NEWSLETTER_PG_HOST":           &cfg.Private.Pg.Host,
		"NEWSLETTER_PG_USER":           &cfg.Private.Pg.User,
		"NEWSLETTER_PG_PASSWORD":       &cfg.Private.Pg.Password,
		"NEWSLETTER_PG_DBNAME":         &cfg.Private.Pg.Dbname,
		"NEWSLETTER_SMTP_USERNAME":     &cfg.Private.Email.SMTPUsername,
		"NEWSLETTER_SMTP_PASSWORD":     &cfg.Private.Email.SMTPPassword,
		"NEWSLETTER_SES_ACCESS_KEY":    &cfg.Private.Email.SESAccessKey,
		"NEWSLETTER_SES_SECRET_KEY":    &cfg.Private.Email.SESSecretKey,
		"NEWSLETTER_OPERATOR_USERNAME": &cfg.Private.Operator.Username,
		"NEWSLETTER_OPERATOR_PASSWORD": &cfg.Private.Operator.Password,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NEWSLETTER_PORT":    &cfg.Public.Application.Port,
		"NEWSLETTER_PG_PORT": &cfg.Private.Pg.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	app := &cfg.Public.Application
	if app.ReadTimeout == 0 {
		app.ReadTimeout = 10 * time.Second
	}
	if app.WriteTimeout == 0 {
		app.WriteTimeout = 30 * time.Second
	}

	if cfg.Public.Storage.Driver == "" {
		cfg.Public.Storage.Driver = StorageDriverPostgres
	}
	if cfg.Private.Pg.SSLMode == "" {
		cfg.Private.Pg.SSLMode = "disable"
	}

	email := &cfg.Public.Email
	if email.Timeout == 0 {
		email.Timeout = 10 * time.Second
	}
	if email.TLSMode == "" {
		email.TLSMode = "auto"
	}

	auth := &cfg.Public.Auth
	if auth.Hasher == "" {
		auth.Hasher = HasherArgon2id
	}
	if auth.Argon2.Memory == 0 {
		auth.Argon2.Memory = 15000
	}
	if auth.Argon2.Iterations == 0 {
		auth.Argon2.Iterations = 2
	}
	if auth.Argon2.Parallelism == 0 {
		auth.Argon2.Parallelism = 1
	}
	if auth.Argon2.KeyLength == 0 {
		auth.Argon2.KeyLength = 32
	}
	if auth.BcryptCost == 0 {
		auth.BcryptCost = 10
	}
	if auth.VerifyConcurrency <= 0 {
		auth.VerifyConcurrency = runtime.NumCPU()
	}

	if cfg.Public.Newsletter.SendConcurrency <= 0 {
		cfg.Public.Newsletter.SendConcurrency = 4
	}
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg.Public); err != nil {
		return fmt.Errorf("invalid public config: %w", err)
	}

	if cfg.Public.Storage.Driver == StorageDriverPostgres {
		pg := cfg.Private.Pg
		if pg.Host == "" || pg.Port == 0 || pg.User == "" || pg.Dbname == "" {
			return fmt.Errorf("invalid private config: pg host, port, user and dbname are required for the postgres driver")
		}
	}

	switch cfg.Public.Email.Transport {
	case TransportSMTP:
		if cfg.Public.Email.SMTPServer == "" || cfg.Public.Email.SMTPPort == 0 {
			return fmt.Errorf("invalid public config: smtp_server and smtp_port are required for the smtp transport")
		}
	case TransportSES:
		if cfg.Public.Email.SESRegion == "" {
			return fmt.Errorf("invalid public config: ses_region is required for the ses transport")
		}
	}
	return nil
}
