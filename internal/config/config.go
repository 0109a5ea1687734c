package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctenopool/labeler/internal/labelapi"
	"github.com/ctenopool/labeler/internal/labeling"
	"gopkg.in/yaml.v3"
)

// Config holds everything the serve command needs
type Config struct {
	Addr           string        `yaml:"addr"`
	APIBase        string        `yaml:"api_base"`
	APITimeout     time.Duration `yaml:"api_timeout"`
	GoogleClientID string        `yaml:"google_client_id"`
	SessionSecret  string        `yaml:"session_secret"`
	SecureCookies  bool          `yaml:"secure_cookies"`
	DevLogin       bool          `yaml:"dev_login"`
	JournalPath    string        `yaml:"journal"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	ClassLabels    []string      `yaml:"class_labels"`
}

func Default() Config {
	return Config{
		Addr:        ":8888",
		APIBase:     labelapi.DefaultBaseURL,
		SessionTTL:  2 * time.Hour,
		ClassLabels: append([]string(nil), labeling.DefaultClassLabels...),
	}
}

// Load starts from the defaults, overlays the YAML file at path (if any)
// and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LABELER_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("LABELER_API_BASE"); v != "" {
		c.APIBase = v
	}
	if v := os.Getenv("LABELER_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LABELER_API_TIMEOUT: %w", err)
		}
		c.APITimeout = d
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.GoogleClientID = v
	}
	if v := os.Getenv("LABELER_SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("LABELER_DEV_LOGIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LABELER_DEV_LOGIN: %w", err)
		}
		c.DevLogin = b
	}
	if v := os.Getenv("LABELER_JOURNAL"); v != "" {
		c.JournalPath = v
	}
	if v := os.Getenv("LABELER_CLASS_LABELS"); v != "" {
		var labels []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
		c.ClassLabels = labels
	}
	return nil
}

// Validate reports configuration that would leave the server unusable.
func (c Config) Validate() error {
	var errs []error
	if c.APIBase == "" {
		errs = append(errs, errors.New("api base URL is required"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.GoogleClientID == "" && !c.DevLogin {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required unless dev login is enabled"))
	}
	if c.SessionSecret == "" && !c.DevLogin {
		errs = append(errs, errors.New("LABELER_SESSION_SECRET is required unless dev login is enabled"))
	}
	if len(c.ClassLabels) == 0 {
		errs = append(errs, errors.New("at least one class label is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}
	return errors.Join(errs...)
}
