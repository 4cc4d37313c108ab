// Package sshkeys generates the kdk SSH keypair and opens interactive
// sessions to the container's published port.
package sshkeys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/crypto/ssh"

	"github.com/kdk-project/kdk/internal/kdk/config"
)

// KeyName is the private key filename under the kdk home directory.
const KeyName = "id_ed25519"

// Exists reports whether a keypair has already been generated in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, KeyName))
	return err == nil
}

// Generate creates an ed25519 keypair in dir, writing the private key in
// OpenSSH PEM form and the public key in authorized_keys form. It is a
// no-op when the keypair already exists.
func Generate(dir string) error {
	if Exists(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("sshkeys: create dir: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("sshkeys: generate key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "kdk")
	if err != nil {
		return fmt.Errorf("sshkeys: marshal private key: %w", err)
	}
	keyPath := filepath.Join(dir, KeyName)
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("sshkeys: write %s: %w", keyPath, err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("sshkeys: convert public key: %w", err)
	}
	pubPath := keyPath + ".pub"
	if err := os.WriteFile(pubPath, ssh.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		return fmt.Errorf("sshkeys: write %s: %w", pubPath, err)
	}
	return nil
}

// Session opens an interactive ssh session to the container using the
// configured port, user, and identity file. It blocks until the session
// ends and returns the client's error, which callers treat as best-effort.
func Session(cfg config.SSH) error {
	args := []string{
		"-p", strconv.Itoa(cfg.Port),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}
	if cfg.IdentityFile != "" {
		args = append(args, "-i", cfg.IdentityFile)
	}
	args = append(args, fmt.Sprintf("%s@localhost", cfg.User))

	cmd := exec.Command("ssh", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sshkeys: session: %w", err)
	}
	return nil
}
