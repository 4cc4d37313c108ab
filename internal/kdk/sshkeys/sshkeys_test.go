package sshkeys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateWritesKeypair(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	priv, err := os.ReadFile(filepath.Join(dir, KeyName))
	if err != nil {
		t.Fatalf("read private key: %v", err)
	}
	if !strings.Contains(string(priv), "OPENSSH PRIVATE KEY") {
		t.Error("private key is not in OpenSSH PEM form")
	}

	pub, err := os.ReadFile(filepath.Join(dir, KeyName+".pub"))
	if err != nil {
		t.Fatalf("read public key: %v", err)
	}
	if !strings.HasPrefix(string(pub), "ssh-ed25519 ") {
		t.Errorf("public key = %q, want ssh-ed25519 authorized_keys form", string(pub))
	}

	info, err := os.Stat(filepath.Join(dir, KeyName))
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("private key mode = %o, want 600", mode)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, KeyName))
	if err != nil {
		t.Fatal(err)
	}

	if err := Generate(dir); err != nil {
		t.Fatalf("Generate second call: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, KeyName))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("second Generate overwrote the existing keypair")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("Exists = true before Generate")
	}
	if err := Generate(dir); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir) {
		t.Error("Exists = false after Generate")
	}
}
