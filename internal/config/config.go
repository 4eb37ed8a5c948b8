// Package config loads redlist settings from defaults, an optional YAML
// file, REDLIST_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nainya/redlist/internal/logger"
	"github.com/nainya/redlist/pkg/document"
)

// Name is used for the config file name, its search directories and the
// environment prefix.
const Name = "redlist"

// Config is the complete service configuration.
type Config struct {
	Corpus          CorpusConfig        `mapstructure:"corpus"`
	HTTP            HTTPConfig          `mapstructure:"http"`
	GRPC            GRPCConfig          `mapstructure:"grpc"`
	Observability   ObservabilityConfig `mapstructure:"observability"`
	Chat            ChatConfig          `mapstructure:"chat"`
	Admin           AdminConfig         `mapstructure:"admin"`
	Log             LogConfig           `mapstructure:"log"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	ShutdownTimeout time.Duration       `mapstructure:"shutdown-timeout" validate:"gt=0"`
}

// CorpusConfig locates the fragment file.
type CorpusConfig struct {
	Root           string   `mapstructure:"root"`
	Candidates     []string `mapstructure:"candidates" validate:"min=1,dive,required"`
	Watch          bool     `mapstructure:"watch"`
	ReloadSchedule string   `mapstructure:"reload-schedule" validate:"omitempty,cronspec"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// ObservabilityConfig configures the metrics and profiling listener.
type ObservabilityConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// ChatConfig configures the chat proxy.
type ChatConfig struct {
	Upstream string        `mapstructure:"upstream" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Rate     float64       `mapstructure:"rate" validate:"gte=0"` // Requests per second, 0 for unlimited
	Burst    int           `mapstructure:"burst" validate:"gte=0"`
}

// AdminConfig gates operator endpoints.
type AdminConfig struct {
	Reload bool `mapstructure:"reload"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"loglevel"`
	Pretty bool   `mapstructure:"pretty"`
}

// TracingConfig selects the OpenTelemetry span exporter.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample-ratio" validate:"gte=0,lte=1"`
}

// Logger returns the logger settings for this configuration.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.Log.Level, Pretty: c.Log.Pretty}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their config key rather than their Go name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logger.ParseLevel(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})

	return v
}

// Validate reports every unusable setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", key, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("corpus.root", ".")
	v.SetDefault("corpus.candidates", document.DefaultCandidates)
	v.SetDefault("corpus.watch", false)
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("observability.addr", ":9090")
	v.SetDefault("chat.upstream", "http://127.0.0.1:8000")
	v.SetDefault("chat.timeout", 60*time.Second)
	v.SetDefault("chat.rate", 0)
	v.SetDefault("chat.burst", 5)
	v.SetDefault("corpus.reload-schedule", "")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample-ratio", 1.0)
	v.SetDefault("admin.reload", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("shutdown-timeout", 10*time.Second)
}

// flagKeys maps global flag names onto config keys.
var flagKeys = map[string]string{
	"corpus-root": "corpus.root",
	"log-level":   "log.level",
	"log-pretty":  "log.pretty",
}

// AddFlags registers the flags that override configuration keys.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("corpus-root", ".", "Directory the corpus candidate paths are relative to")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Bool("log-pretty", false, "Human-readable console logs")
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file; when empty the standard locations
	// are searched and a missing file is not an error.
	File string
	// Flags, when set, override everything else for flags the user changed.
	Flags *pflag.FlagSet
}

// Load assembles the configuration and validates it.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+Name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The chat backend has always been located by RAG_API_URL.
	if err := v.BindEnv("chat.upstream", "REDLIST_CHAT_UPSTREAM", "RAG_API_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind chat upstream env: %w", err)
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR references in string values read
// from the config file. Unset variables are left as written.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := strings.TrimPrefix(match, "$")
			name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
			if val := os.Getenv(name); val != "" {
				return val
			}
			return match
		})
		if expanded != s {
			v.Set(key, expanded)
		}
	}
}

// MarshalYAML renders the configuration with its config keys and
// human-readable durations.
func (c Config) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		"corpus": map[string]interface{}{
			"root":            c.Corpus.Root,
			"candidates":      c.Corpus.Candidates,
			"watch":           c.Corpus.Watch,
			"reload-schedule": c.Corpus.ReloadSchedule,
		},
		"http":          map[string]interface{}{"addr": c.HTTP.Addr},
		"grpc":          map[string]interface{}{"addr": c.GRPC.Addr},
		"observability": map[string]interface{}{"addr": c.Observability.Addr},
		"chat": map[string]interface{}{
			"upstream": c.Chat.Upstream,
			"timeout":  c.Chat.Timeout.String(),
			"rate":     c.Chat.Rate,
			"burst":    c.Chat.Burst,
		},
		"admin": map[string]interface{}{"reload": c.Admin.Reload},
		"log": map[string]interface{}{
			"level":  c.Log.Level,
			"pretty": c.Log.Pretty,
		},
		"tracing": map[string]interface{}{
			"exporter":     c.Tracing.Exporter,
			"endpoint":     c.Tracing.Endpoint,
			"insecure":     c.Tracing.Insecure,
			"sample-ratio": c.Tracing.SampleRatio,
		},
		"shutdown-timeout": c.ShutdownTimeout.String(),
	}, nil
}

// YAML encodes the configuration in the same shape the config file uses.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
