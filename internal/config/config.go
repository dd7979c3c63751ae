package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"survey-plan/internal/render"
)

type Config struct {
	InputFile       string
	OutputDir       string
	HTTPAddr        string
	MetricsAddr     string
	DatabaseURL     string
	NATSURL         string
	NATSSubject     string
	LogNATSSubjects bool
	LogLevel        string
	LogFormat       string
	DisplayProfile  string
	Display         render.Options
}

// Defaults for the one-shot CLI pass.
const (
	DefaultInputFile   = "data ukur.csv"
	DefaultOutputDir   = "."
	DefaultNATSSubject = "survey.plans"
)

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		InputFile:   getenvDefault("INPUT_FILE", DefaultInputFile),
		OutputDir:   getenvDefault("OUTPUT_DIR", DefaultOutputDir),
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getenvDefault("NATS_SUBJECT_PREFIX", DefaultNATSSubject),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		LogFormat:   getenvDefault("LOG_FORMAT", "text"),
	}
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Database is optional: DATABASE_URL / PG_DSN, else PG* vars when PGDATABASE is set.
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN"))
	if cfg.DatabaseURL == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, os.Getenv("PGDATABASE"), sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, os.Getenv("PGDATABASE"), sslmode)
		}
	}

	// Display options: defaults, then the YAML profile, then env vars.
	cfg.Display = render.DefaultOptions()
	cfg.DisplayProfile = os.Getenv("DISPLAY_PROFILE")
	if cfg.DisplayProfile != "" {
		if err := loadProfile(cfg.DisplayProfile, &cfg.Display); err != nil {
			return nil, err
		}
	}
	if err := applyDisplayEnv(&cfg.Display); err != nil {
		return nil, err
	}
	if err := cfg.Display.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type profile struct {
	Theme              string   `yaml:"theme"`
	ShowGrid           *bool    `yaml:"show_grid"`
	GridInterval       *float64 `yaml:"grid_interval"`
	StationLabelSize   *float64 `yaml:"station_label_size"`
	EdgeLabelSize      *float64 `yaml:"edge_label_size"`
	StationLabelOffset *float64 `yaml:"station_label_offset"`
}

func loadProfile(path string, o *render.Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read display profile: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("parse display profile %s: %w", path, err)
	}
	if p.Theme != "" {
		t, ok := render.ParseTheme(p.Theme)
		if !ok {
			return fmt.Errorf("display profile: unknown theme %q", p.Theme)
		}
		o.Theme = t
	}
	if p.ShowGrid != nil {
		o.ShowGrid = *p.ShowGrid
	}
	setIf(&o.GridInterval, p.GridInterval)
	setIf(&o.StationLabelSize, p.StationLabelSize)
	setIf(&o.EdgeLabelSize, p.EdgeLabelSize)
	setIf(&o.StationLabelOffset, p.StationLabelOffset)
	return nil
}

func applyDisplayEnv(o *render.Options) error {
	if v := os.Getenv("THEME"); v != "" {
		t, ok := render.ParseTheme(v)
		if !ok {
			return fmt.Errorf("invalid THEME: %q", v)
		}
		o.Theme = t
	}
	if v := os.Getenv("SHOW_GRID"); v != "" {
		o.ShowGrid = parseBool(v)
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"GRID_INTERVAL", &o.GridInterval},
		{"STATION_LABEL_SIZE", &o.StationLabelSize},
		{"EDGE_LABEL_SIZE", &o.EdgeLabelSize},
		{"STATION_LABEL_OFFSET", &o.StationLabelOffset},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", f.key, v)
		}
		*f.dst = n
	}
	return nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
