// Package config loads board settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleStandalone  Role = "standalone"
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Role Role   `yaml:"role"`
	User string `yaml:"user"`
	// Listen is the host's HTTP address.
	Listen string `yaml:"listen"`
	// HostAddr is the "ip:port" a participant joins. Empty with Discover set
	// means look the host up over mDNS.
	HostAddr      string        `yaml:"host_addr"`
	Discover      bool          `yaml:"discover"`
	Advertise     bool          `yaml:"advertise"`
	PendingTTL    time.Duration `yaml:"pending_ttl"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	QueueCapacity int           `yaml:"queue_capacity"`
	StorePath     string        `yaml:"store_path"`
	ExportPath    string        `yaml:"export_path"`
}

func Default() Config {
	user, _ := os.Hostname()
	return Config{
		Role:        RoleHost,
		User:        user,
		Listen:      ":8888",
		Advertise:   true,
		Discover:    true,
		PendingTTL:  30 * time.Second,
		CallTimeout: 10 * time.Second,
		DialTimeout: 30 * time.Second,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Role {
	case RoleStandalone, RoleHost, RoleParticipant:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, c.Role)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidConfig)
	}
	if c.Role == RoleHost && c.Listen == "" {
		return fmt.Errorf("%w: host needs a listen address", ErrInvalidConfig)
	}
	if c.Role == RoleParticipant && c.HostAddr == "" && !c.Discover {
		return fmt.Errorf("%w: participant needs host_addr or discover", ErrInvalidConfig)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: negative queue_capacity", ErrInvalidConfig)
	}
	if c.PendingTTL < 0 || c.CallTimeout < 0 || c.DialTimeout < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.PendingTTL > 0 && c.CallTimeout > 0 && c.PendingTTL <= c.CallTimeout {
		return fmt.Errorf("%w: pending_ttl must exceed call_timeout", ErrInvalidConfig)
	}
	return nil
}
