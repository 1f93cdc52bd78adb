// Package config loads the gateway configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names an optional YAML file layered between defaults and env.
const PathEnvVar = "CONFIG_PATH"

type LogCfg struct {
	Level   string `koanf:"level"`
	Console bool   `koanf:"console"`
	SampleN int    `koanf:"sample_n" validate:"min=0"`
}

type PostgresCfg struct {
	DB       string `koanf:"db" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password" validate:"required"`
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required,min=1,max=65535"`
	SSLMode  string `koanf:"sslmode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
}

// ConnString renders a libpq URL with escaped credentials.
func (p PostgresCfg) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type GeoServerCfg struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	Workspace string `koanf:"workspace" validate:"required"`
	User      string `koanf:"user" validate:"required"`
	Password  string `koanf:"password" validate:"required"`
}

type Config struct {
	Addr           string       `koanf:"addr" validate:"required"`
	ServiceName    string       `koanf:"service_name" validate:"required"`
	PublicAPIBase  string       `koanf:"public_api_base" validate:"required,url"`
	MetricsEnabled bool         `koanf:"metrics_enabled"`
	Log            LogCfg       `koanf:"log"`
	Postgres       PostgresCfg  `koanf:"postgres"`
	GeoServer      GeoServerCfg `koanf:"geoserver"`
}

func defaults() Config {
	return Config{
		Addr:           ":8000",
		ServiceName:    "GIS Test API",
		PublicAPIBase:  "http://localhost:8000",
		MetricsEnabled: true,
		Log:            LogCfg{Level: "info"},
		Postgres: PostgresCfg{
			DB:       "gis",
			User:     "gis",
			Password: "gis",
			Host:     "db",
			Port:     5432,
			SSLMode:  "disable",
		},
		GeoServer: GeoServerCfg{
			BaseURL:   "http://geoserver:8080/geoserver",
			Workspace: "gis_test",
			User:      "admin",
			Password:  "geoserver",
		},
	}
}

// env var -> koanf path
var envKeys = map[string]string{
	"ADDR":                "addr",
	"SERVICE_NAME":        "service_name",
	"PUBLIC_API_BASE":     "public_api_base",
	"METRICS_ENABLED":     "metrics_enabled",
	"LOG_LEVEL":           "log.level",
	"LOG_CONSOLE":         "log.console",
	"LOG_SAMPLE_N":        "log.sample_n",
	"POSTGRES_DB":         "postgres.db",
	"POSTGRES_USER":       "postgres.user",
	"POSTGRES_PASSWORD":   "postgres.password",
	"POSTGRES_HOST":       "postgres.host",
	"POSTGRES_PORT":       "postgres.port",
	"POSTGRES_SSLMODE":    "postgres.sslmode",
	"GEOSERVER_BASE_URL":  "geoserver.base_url",
	"GEOSERVER_WORKSPACE": "geoserver.workspace",
	"GEOSERVER_USER":      "geoserver.user",
	"GEOSERVER_PASSWORD":  "geoserver.password",
}

// unmapped variables are dropped
func envTransform(key string) string {
	return envKeys[key]
}

// Load layers defaults, the optional CONFIG_PATH file and the environment,
// then validates the result. Any error is meant to stop the process.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(PathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
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

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate reports every offending key together with its env var.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	byPath := make(map[string]string, len(envKeys))
	for k, p := range envKeys {
		byPath[p] = k
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("%s: failed %q", path, fe.Tag())
		if ev, ok := byPath[path]; ok {
			msg = fmt.Sprintf("%s (%s): failed %q", path, ev, fe.Tag())
		}
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
