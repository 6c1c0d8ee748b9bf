// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials kept outside the config file. A secrets
// directory holds one file per secret: the file name is the key and the
// trimmed contents are the value.
//
// Recognized keys: nats-token, nats-user, nats-password.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Keys of the run notifier credentials.
const (
	KeyNATSToken    = "nats-token"
	KeyNATSUser     = "nats-user"
	KeyNATSPassword = "nats-password"
)

// Set maps secret names to values.
type Set map[string]string

// Get returns the value of key and whether it was present.
func (s Set) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Names returns the loaded secret names without their values.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	return names
}

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty set. Files that cannot be read are logged and skipped;
// empty files are ignored.
func Load(dir string, logger *slog.Logger) (Set, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}
