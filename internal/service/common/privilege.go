//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"

	"golang.org/x/sys/unix"

	"github.com/oshokin/lumen-provision/internal/logger"
)

var errSudoUnavailable = errors.New("root privileges are required and sudo was not found")

// IsPrivileged reports whether the process runs with an effective UID of 0.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}

// DetectUser returns the name of the user the process runs as.
func DetectUser() (string, error) {
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return currentUser.Username, nil
}

// InvokingUser returns the unprivileged user that started the process
// through sudo, or an empty string when there is none.
func InvokingUser() string {
	name := os.Getenv("SUDO_USER")
	if name == "root" {
		return ""
	}

	return name
}

// Elevate replaces the current process with `sudo -- <self> <args>` unless it
// already runs as root. It only returns on failure, or with nil when no
// escalation was needed.
func Elevate(ctx context.Context) error {
	if IsPrivileged() {
		return nil
	}

	sudo, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("%w: %w", errSudoUnavailable, err)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	username, err := DetectUser()
	if err != nil {
		username = "unknown"
	}

	logger.InfoKV(ctx, "Root privileges required, re-executing through sudo", "user", username)
	logger.Sync()

	argv := append([]string{"sudo", "--", self}, os.Args[1:]...)

	if err = unix.Exec(sudo, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec sudo: %w", err)
	}

	return nil
}
