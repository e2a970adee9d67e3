package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/9531lyj/AutoCheckBJMF/internal/model"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

// PushDisabled is the sentinel token value that permanently disables
// push notifications.
const PushDisabled = "off"

type Config struct {
	// Class is the identifier of the target course.
	Class string `yaml:"class" validate:"required"`

	// Lat, Lng and Acc are kept as strings: the platform receives them
	// verbatim in form fields, and the jitter routine works on the
	// decimal representation.
	Lat string `yaml:"lat" validate:"required"`
	Lng string `yaml:"lng" validate:"required"`
	Acc string `yaml:"acc" validate:"required"`

	// Cookie is the ordered list of raw credentials, one per account.
	Cookie []string `yaml:"cookie" validate:"required,min=1"`

	// ScheduleTime is an optional HH:MM wall-clock trigger. Empty means
	// run once and exit.
	ScheduleTime string `yaml:"scheduletime"`

	// PushPlus is the pushplus.plus token, empty if unused, "off" to
	// disable permanently.
	PushPlus string `yaml:"pushplus"`

	Debug      bool `yaml:"debug"`
	ConfigLock bool `yaml:"configlock"`

	Platform PlatformConfig `yaml:"platform"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PlatformConfig struct {
	BaseURL      string          `yaml:"base_url"`
	Timeout      time.Duration   `yaml:"timeout"`
	AccountDelay time.Duration   `yaml:"account_delay"`
	RetryDelays  []time.Duration `yaml:"retry_delays"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// New returns an empty configuration carrying only the platform and
// logging defaults. Callers populate the run fields from another source,
// such as a stored credential bundle.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "http://k8n.cn"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 10 * time.Second
	}
	if c.Platform.AccountDelay == 0 {
		c.Platform.AccountDelay = 5 * time.Second
	}
	if len(c.Platform.RetryDelays) == 0 {
		c.Platform.RetryDelays = []time.Duration{5 * time.Minute, 15 * time.Minute}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

var scheduleTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks the configuration before any network activity. It must
// pass before the orchestrator is ever handed the config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok || len(errs) == 0 {
			return err
		}
		return apperrors.ValidationError{
			Field:   errs[0].Field(),
			Value:   errs[0].Value(),
			Message: "missing or malformed required field",
		}
	}

	lat, err := strconv.ParseFloat(c.Lat, 64)
	if err != nil {
		return apperrors.ValidationError{Field: "lat", Value: c.Lat, Message: "not a decimal number"}
	}
	if lat < -90 || lat > 90 {
		return apperrors.ValidationError{Field: "lat", Value: c.Lat, Message: "latitude out of range [-90, 90]"}
	}

	lng, err := strconv.ParseFloat(c.Lng, 64)
	if err != nil {
		return apperrors.ValidationError{Field: "lng", Value: c.Lng, Message: "not a decimal number"}
	}
	if lng < -180 || lng > 180 {
		return apperrors.ValidationError{Field: "lng", Value: c.Lng, Message: "longitude out of range [-180, 180]"}
	}

	if _, err := strconv.ParseFloat(c.Acc, 64); err != nil {
		return apperrors.ValidationError{Field: "acc", Value: c.Acc, Message: "not a decimal number"}
	}

	if c.ScheduleTime != "" {
		if !scheduleTimePattern.MatchString(c.ScheduleTime) {
			return apperrors.ValidationError{Field: "scheduletime", Value: c.ScheduleTime, Message: "must be HH:MM"}
		}
		hour, _ := strconv.Atoi(c.ScheduleTime[:2])
		minute, _ := strconv.Atoi(c.ScheduleTime[3:])
		if hour > 23 || minute > 59 {
			return apperrors.ValidationError{Field: "scheduletime", Value: c.ScheduleTime, Message: "time out of range"}
		}
	}

	return nil
}

// Coordinate returns the configured position as a parsed triple. Validate
// must have succeeded first.
func (c *Config) Coordinate() (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(c.Lat, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid lat: %w", err)
	}
	lng, err := strconv.ParseFloat(c.Lng, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid lng: %w", err)
	}
	alt, err := strconv.ParseFloat(c.Acc, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid acc: %w", err)
	}
	return model.Coordinate{Lat: lat, Lng: lng, Alt: alt}, nil
}

// Save writes the configuration back to the file it was loaded from. Used
// after pruning churned-out cookies.
func (c *Config) Save() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
