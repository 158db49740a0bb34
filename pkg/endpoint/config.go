package endpoint

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/sluice/pkg/adapters/microfocus"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
)

type csvConfig struct {
	Path             string `mapstructure:"path"`
	Comma            string `mapstructure:"comma"`
	Comment          string `mapstructure:"comment"`
	Header           *bool  `mapstructure:"header"`
	LazyQuotes       bool   `mapstructure:"lazy_quotes"`
	TrimLeadingSpace bool   `mapstructure:"trim_leading_space"`
	// Key and Value name the columns of a csv lookup source.
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type filesConfig struct {
	Dir   string   `mapstructure:"dir"`
	Files []string `mapstructure:"files"`
	Glob  []string `mapstructure:"glob"`
}

type pathConfig struct {
	Path   string `mapstructure:"path"`
	Select string `mapstructure:"select"`
	Nested bool   `mapstructure:"nested"`
}

type s3Config struct {
	Bucket    string   `mapstructure:"bucket"`
	Region    string   `mapstructure:"region"`
	Prefix    string   `mapstructure:"prefix"`
	Endpoint  string   `mapstructure:"endpoint"`
	PathStyle bool     `mapstructure:"path_style"`
	Glob      []string `mapstructure:"glob"`
}

type sqlConfig struct {
	Driver        string            `mapstructure:"driver"`
	DSN           string            `mapstructure:"dsn"`
	Query         string            `mapstructure:"query"`
	Table         string            `mapstructure:"table"`
	Mode          string            `mapstructure:"mode"`
	Keys          []string          `mapstructure:"keys"`
	Actions       map[string]string `mapstructure:"actions"`
	DefaultAction string            `mapstructure:"default_action"`
	Key           string            `mapstructure:"key"`
	Value         string            `mapstructure:"value"`
}

type redisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Match    string        `mapstructure:"match"`
	Prefix   string        `mapstructure:"prefix"`
	KeyField string        `mapstructure:"key_field"`
	TTL      time.Duration `mapstructure:"ttl"`
	Hash     bool          `mapstructure:"hash"`
	Nested   bool          `mapstructure:"nested"`
	// Key is the hash read by a redis lookup source.
	Key string `mapstructure:"key"`
}

type columnConfig struct {
	Name   string `mapstructure:"name"`
	Offset int    `mapstructure:"offset"`
	Length int    `mapstructure:"length"`
	Kind   string `mapstructure:"kind"`
}

type microfocusConfig struct {
	Path          string         `mapstructure:"path"`
	SkipDeleted   bool           `mapstructure:"skip_deleted"`
	IncludeHeader bool           `mapstructure:"include_header"`
	Layout        []columnConfig `mapstructure:"layout"`
}

func (c microfocusConfig) readerOptions() ([]microfocus.ReaderOption, error) {
	var opts []microfocus.ReaderOption
	if c.SkipDeleted {
		opts = append(opts, microfocus.SkipDeleted())
	}
	if len(c.Layout) == 0 {
		return opts, nil
	}
	layout := make(microfocus.Layout, 0, len(c.Layout))
	for _, col := range c.Layout {
		kind, err := parseKind(col.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		layout = append(layout, microfocus.Column{Name: col.Name, Offset: col.Offset, Length: col.Length, Kind: kind})
	}
	return append(opts, microfocus.WithLayout(layout)), nil
}

func parseKind(s string) (microfocus.Kind, error) {
	switch s {
	case "", "text":
		return microfocus.Text, nil
	case "bytes":
		return microfocus.Bytes, nil
	case "uint", "comp":
		return microfocus.Uint, nil
	case "display":
		return microfocus.Display, nil
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

// firstRune returns the single character of a delimiter option.
func firstRune(name, s string) (rune, error) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", name, s)
	}
	return r[0], nil
}

// protectConfig holds the sink settings shared by every sink type.
type protectConfig struct {
	Mask    []string       `mapstructure:"mask"`
	Encrypt *encryptConfig `mapstructure:"encrypt"`
}

// encryptConfig names environment variables holding base64 AES-256 keys.
type encryptConfig struct {
	KeyEnv          string   `mapstructure:"key_env"`
	FallbackKeyEnvs []string `mapstructure:"fallback_key_envs"`
	Fields          []string `mapstructure:"fields"`
}

// middleware builds the sink wrappers; masking runs before encryption.
func (c protectConfig) middleware() ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(c.Mask) > 0 {
		mw, err := middleware.NewPIIMiddleware(c.Mask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if c.Encrypt != nil {
		active, err := envKey(c.Encrypt.KeyEnv)
		if err != nil {
			return nil, err
		}
		config := middleware.EncryptionConfig{ActiveKey: active, Fields: c.Encrypt.Fields}
		for _, name := range c.Encrypt.FallbackKeyEnvs {
			k, err := envKey(name)
			if err != nil {
				return nil, err
			}
			config.FallbackKeys = append(config.FallbackKeys, k)
		}
		mw, err := middleware.NewEncryptionMiddleware(config)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func envKey(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("encrypt needs key_env")
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("environment variable %s is not set", name)
	}
	k, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return k, nil
}
