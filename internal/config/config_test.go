package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

func validConfig() *Config {
	cfg := &Config{
		Class:  "12345",
		Lat:    "39.904697",
		Lng:    "116.407178",
		Acc:    "100",
		Cookie: []string{"remember_student_59ba36addc2b2f9401580f014c7f58ea4e30989d=x"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestValidateLatitudeOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Lat = "999"

	err := cfg.Validate()
	var verr apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Field != "lat" {
		t.Errorf("Field = %q, want lat", verr.Field)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing class", func(c *Config) { c.Class = "" }},
		{"missing lat", func(c *Config) { c.Lat = "" }},
		{"non-numeric lat", func(c *Config) { c.Lat = "north" }},
		{"lng out of range", func(c *Config) { c.Lng = "-200" }},
		{"non-numeric acc", func(c *Config) { c.Acc = "high" }},
		{"no cookies", func(c *Config) { c.Cookie = nil }},
		{"schedule missing colon", func(c *Config) { c.ScheduleTime = "0800" }},
		{"schedule single digit hour", func(c *Config) { c.ScheduleTime = "8:00" }},
		{"schedule hour out of range", func(c *Config) { c.ScheduleTime = "24:00" }},
		{"schedule minute out of range", func(c *Config) { c.ScheduleTime = "08:60" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestValidateScheduleTimes(t *testing.T) {
	for _, st := range []string{"", "00:00", "08:30", "23:59"} {
		cfg := validConfig()
		cfg.ScheduleTime = st
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate rejected scheduletime %q: %v", st, err)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `class: "12345"
lat: "39.904697"
lng: "116.407178"
acc: "100"
cookie:
  - "remember_student_59ba36addc2b2f9401580f014c7f58ea4e30989d=x"
scheduletime: "08:00"
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Platform.BaseURL != "http://k8n.cn" {
		t.Errorf("BaseURL = %q", cfg.Platform.BaseURL)
	}
	if cfg.Platform.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.Platform.Timeout)
	}
	if cfg.Platform.AccountDelay != 5*time.Second {
		t.Errorf("AccountDelay = %v", cfg.Platform.AccountDelay)
	}
	if len(cfg.Platform.RetryDelays) != 2 ||
		cfg.Platform.RetryDelays[0] != 5*time.Minute ||
		cfg.Platform.RetryDelays[1] != 15*time.Minute {
		t.Errorf("RetryDelays = %v", cfg.Platform.RetryDelays)
	}
	if cfg.ScheduleTime != "08:00" {
		t.Errorf("ScheduleTime = %q", cfg.ScheduleTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); !errors.Is(err, apperrors.ErrConfigNotFound) {
		t.Errorf("Load error = %v, want ErrConfigNotFound", err)
	}
}

func TestCoordinate(t *testing.T) {
	coord, err := validConfig().Coordinate()
	if err != nil {
		t.Fatalf("Coordinate error: %v", err)
	}
	if coord.Lat != 39.904697 || coord.Lng != 116.407178 || coord.Alt != 100 {
		t.Errorf("coord = %+v", coord)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CONFIG_PATH", path)

	cfg := validConfig()
	cfg.Cookie = []string{"a", "b"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(loaded.Cookie) != 2 || loaded.Cookie[0] != "a" {
		t.Errorf("Cookie = %v", loaded.Cookie)
	}
}
