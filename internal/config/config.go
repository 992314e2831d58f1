package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/alphabot-ai/confessional/internal/validation"
)

const (
	EnvPrefix  = "CONFESSIONAL_"
	EnvConfig  = "CONFESSIONAL_CONFIG"
	MiB        = 1 << 20
	FailOpen   = "open"
	FailClosed = "closed"

	// DevAdminPassword is the fallback admin password for local runs.
	DevAdminPassword = "dev-admin-password"
)

type Config struct {
	Server     Server     `koanf:"server"`
	Admin      Admin      `koanf:"admin"`
	Board      Board      `koanf:"board"`
	Upload     Upload     `koanf:"upload"`
	Moderation Moderation `koanf:"moderation"`
	Classifier Classifier `koanf:"classifier"`
	Store      Store      `koanf:"store"`
	Log        Log        `koanf:"log"`

	// Build metadata, injected by main rather than loaded.
	Version   string `koanf:"-"`
	Commit    string `koanf:"-"`
	BuildTime string `koanf:"-"`
}

type Server struct {
	Addr              string        `koanf:"addr" validate:"required"`
	PublicURL         string        `koanf:"public_url"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

type Admin struct {
	Username     string `koanf:"username" validate:"required"`
	PasswordHash string `koanf:"password_hash"`
	// Password is hashed at startup when no PasswordHash is configured.
	Password string `koanf:"password"`
}

type Board struct {
	Categories         []string `koanf:"categories" validate:"min=1,dive,required,lowercase"`
	DefaultCategory    string   `koanf:"default_category" validate:"required"`
	DefaultDisplayName string   `koanf:"default_display_name"`
	DefaultAvatar      string   `koanf:"default_avatar"`
	MaxTextLength      int      `koanf:"max_text_length" validate:"gte=0"`
	MaxDisplayName     int      `koanf:"max_display_name" validate:"gte=0"`
}

type Upload struct {
	MaxBytes     int64    `koanf:"max_bytes" validate:"gt=0"`
	AllowedTypes []string `koanf:"allowed_types" validate:"min=1"`
	Storage      string   `koanf:"storage" validate:"oneof=inline disk"`
	Dir          string   `koanf:"dir" validate:"required_if=Storage disk"`
	URLPrefix    string   `koanf:"url_prefix" validate:"required_if=Storage disk"`
}

type Moderation struct {
	TermsFile  string   `koanf:"terms_file"`
	ExtraTerms []string `koanf:"extra_terms"`
	ExtraTLDs  []string `koanf:"extra_tlds"`
}

type Classifier struct {
	Enabled             bool          `koanf:"enabled"`
	URL                 string        `koanf:"url" validate:"required_if=Enabled true"`
	Timeout             time.Duration `koanf:"timeout"`
	LoadTimeout         time.Duration `koanf:"load_timeout"`
	FailPolicy          string        `koanf:"fail_policy" validate:"oneof=open closed"`
	MaxRPS              float64       `koanf:"max_rps" validate:"gte=0"`
	HighRiskLabels      []string      `koanf:"high_risk_labels"`
	HighRiskThreshold   float64       `koanf:"high_risk_threshold" validate:"gte=0,lte=1"`
	BorderlineLabels    []string      `koanf:"borderline_labels"`
	BorderlineThreshold float64       `koanf:"borderline_threshold" validate:"gte=0,lte=1"`
	BreakerFailures     uint32        `koanf:"breaker_failures"`
	BreakerCooldown     time.Duration `koanf:"breaker_cooldown"`
	// MaxPixels refuses images whose width x height exceeds it before
	// their bitmap is decoded.
	MaxPixels           int64         `koanf:"max_pixels" validate:"gte=0"`
}

type Store struct {
	Driver string `koanf:"driver" validate:"oneof=memory sqlite"`
	Name   string `koanf:"name"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":3000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
		},
		Admin: Admin{
			Username: "admin",
			Password: DevAdminPassword,
		},
		Board: Board{
			Categories:         []string{"inspiration", "knowledge", "thoughts", "confessions"},
			DefaultCategory:    "thoughts",
			DefaultDisplayName: "Anonymous",
			DefaultAvatar:      "👤",
			MaxTextLength:      2000,
			MaxDisplayName:     40,
		},
		Upload: Upload{
			MaxBytes:     5 * MiB,
			AllowedTypes: []string{"image/jpeg", "image/jpg", "image/gif", "image/png"},
			Storage:      "inline",
			Dir:          "uploads",
			URLPrefix:    "/uploads",
		},
		Classifier: Classifier{
			Timeout:             5 * time.Second,
			LoadTimeout:         30 * time.Second,
			FailPolicy:          FailOpen,
			MaxRPS:              20,
			HighRiskLabels:      []string{"Porn", "Hentai"},
			HighRiskThreshold:   0.60,
			BorderlineLabels:    []string{"Sexy"},
			BorderlineThreshold: 0.80,
			BreakerFailures:     5,
			BreakerCooldown:     30 * time.Second,
			MaxPixels:           4096 * 4096,
		},
		Store: Store{
			Driver: "memory",
			Name:   "confessional",
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, the optional YAML file at path (or $CONFESSIONAL_CONFIG)
// and CONFESSIONAL_* environment variables, in that order.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"SERVER__ADDR") == "" {
		if err := k.Set("server.addr", ":"+port); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps CONFESSIONAL_CLASSIFIER__FAIL_POLICY to classifier.fail_policy.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func (c Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("invalid config: admin.password_hash or admin.password is required")
	}
	for _, cat := range c.Board.Categories {
		if cat == c.Board.DefaultCategory {
			return nil
		}
	}
	return fmt.Errorf("invalid config: default category %q is not in board.categories", c.Board.DefaultCategory)
}
