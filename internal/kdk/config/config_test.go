package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default("alice")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Image != cfg.Image {
		t.Errorf("Image = %q, want %q", got.Image, cfg.Image)
	}
	if got.SSH.User != "alice" {
		t.Errorf("SSH.User = %q, want %q", got.SSH.User, "alice")
	}
	if got.SSH.Port != 2022 {
		t.Errorf("SSH.Port = %d, want 2022", got.SSH.Port)
	}
	if got.Docker.Environment["KDK_USERNAME"] != "alice" {
		t.Errorf("Docker.Environment[KDK_USERNAME] = %q, want %q",
			got.Docker.Environment["KDK_USERNAME"], "alice")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("image: ubuntu:24.04\nbogus_key: true\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a document with unknown keys")
	}
}

func TestLoadRejectsWrongTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("image: ubuntu:24.04\nssh:\n  port: \"not-a-number\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted ssh.port of the wrong type")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"empty image", func(c *Config) { c.Image = "" }, true},
		{"invalid image ref", func(c *Config) { c.Image = "NOT VALID" }, true},
		{"port out of range", func(c *Config) { c.SSH.Port = 70000 }, true},
		{"bad volume spec", func(c *Config) { c.Docker.Volumes = []string{"just-a-path"} }, true},
		{"good volume spec", func(c *Config) { c.Docker.Volumes = []string{"/src:/dst:ro"} }, false},
		{"bad port spec", func(c *Config) { c.Docker.Ports = []string{"8080"} }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default("alice")
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestRunOptions(t *testing.T) {
	cfg := Default("alice")
	cfg.Docker.Volumes = []string{"/home/alice:/work"}
	opts := cfg.RunOptions()
	if opts.Name != ContainerName {
		t.Errorf("Name = %q, want %q", opts.Name, ContainerName)
	}
	if opts.Hostname != "kdk" {
		t.Errorf("Hostname = %q, want %q", opts.Hostname, "kdk")
	}
	if len(opts.Volumes) != 1 || opts.Volumes[0] != "/home/alice:/work" {
		t.Errorf("Volumes = %v", opts.Volumes)
	}
}

func TestDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("KDK_HOME", "/tmp/kdk-test-home")
	if got := Dir(); got != "/tmp/kdk-test-home" {
		t.Errorf("Dir() = %q, want %q", got, "/tmp/kdk-test-home")
	}
}
