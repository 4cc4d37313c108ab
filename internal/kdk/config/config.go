// Package config loads and persists the kdk configuration record.
//
// The record lives in a single YAML file under the kdk home directory
// (~/.kdk by default, overridable with KDK_HOME). On load the raw document
// is checked against an embedded JSON schema before it is decoded, so a
// hand-edited file fails with a positional schema error instead of a
// half-populated struct.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/kdk-project/kdk/common/environment"
	"github.com/kdk-project/kdk/internal/kdk/runtime"
)

//go:embed schema.json
var schemaJSON string

// ErrNotFound is returned by Load when no configuration file exists yet.
var ErrNotFound = errors.New("config: not found")

// ContainerName is the reserved name of the single managed container.
const ContainerName = "kdk"

// Config is the persisted configuration record.
type Config struct {
	// Image is the base image reference used to start a fresh container.
	Image string `yaml:"image"`
	// SSH configures how interactive sessions reach the container.
	SSH SSH `yaml:"ssh"`
	// Docker holds the enumerated container run options.
	Docker Docker `yaml:"docker"`
}

// SSH holds the client-side session settings.
type SSH struct {
	// Port is the host port the container's sshd is published on.
	Port int `yaml:"port"`
	// User is the account to log in as.
	User string `yaml:"user"`
	// IdentityFile is the private key presented to the container.
	IdentityFile string `yaml:"identity_file"`
}

// Docker enumerates the run options passed to the engine. Fields are
// named and fixed; there is no free-form option passthrough.
type Docker struct {
	Hostname     string            `yaml:"hostname,omitempty"`
	Environment  map[string]string `yaml:"environment,omitempty"`
	Volumes      []string          `yaml:"volumes,omitempty"`
	Ports        []string          `yaml:"ports,omitempty"`
	Capabilities []string          `yaml:"capabilities,omitempty"`
	SecurityOpt  []string          `yaml:"security_opt,omitempty"`
	Privileged   bool              `yaml:"privileged,omitempty"`
}

// Dir returns the kdk home directory (KDK_HOME or ~/.kdk).
func Dir() string {
	if v := environment.StringOr("KDK_HOME", ""); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kdk"
	}
	return filepath.Join(home, ".kdk")
}

// Path returns the configuration file path under Dir.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration written by init for the given user.
func Default(user string) *Config {
	return &Config{
		Image: "ubuntu:24.04",
		SSH: SSH{
			Port:         2022,
			User:         user,
			IdentityFile: filepath.Join(Dir(), "id_ed25519"),
		},
		Docker: Docker{
			Hostname: ContainerName,
			Environment: map[string]string{
				"KDK_USERNAME": user,
			},
			Ports: []string{"2022:22"},
		},
	}
}

// Exists reports whether a configuration file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads, schema-validates, and decodes the configuration at path.
// Returns ErrNotFound when no file exists.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (run 'kdk init' first)", ErrNotFound)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path, creating the parent directory when needed.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the record for structural correctness.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Image) == "" {
		return fmt.Errorf("image must not be empty")
	}
	if _, err := runtime.ParseImageRef(c.Image); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is outside valid range [0, 65535]", c.SSH.Port)
	}
	for i, v := range c.Docker.Volumes {
		parts := strings.Split(v, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("docker.volumes[%d] %q must be host:container[:mode]", i, v)
		}
	}
	for i, p := range c.Docker.Ports {
		parts := strings.Split(p, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("docker.ports[%d] %q must be host:container", i, p)
		}
	}
	return nil
}

// BaseImage parses the configured base image reference.
func (c *Config) BaseImage() (runtime.ImageRef, error) {
	return runtime.ParseImageRef(c.Image)
}

// RunOptions assembles the engine run options for the managed container.
func (c *Config) RunOptions() runtime.RunOptions {
	return runtime.RunOptions{
		Name:         ContainerName,
		Hostname:     c.Docker.Hostname,
		Env:          c.Docker.Environment,
		Volumes:      c.Docker.Volumes,
		Ports:        c.Docker.Ports,
		Capabilities: c.Docker.Capabilities,
		SecurityOpt:  c.Docker.SecurityOpt,
		Privileged:   c.Docker.Privileged,
	}
}

// validateSchema checks the raw YAML document against the embedded schema.
// The document is re-encoded through JSON so the validator sees plain JSON
// types regardless of YAML decoding quirks.
func validateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	sch, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
