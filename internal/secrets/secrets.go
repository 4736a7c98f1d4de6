// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. The
// filename is the key name and the trimmed file contents are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is where the CLI looks for key files.
const DefaultDir = ".secrets"

// Key file names understood by the CLI.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	OpenAIAPIKey          = "openai-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	WeaviateAPIKey        = "weaviate-api-key"
)

// Store holds loaded secrets.
type Store map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty Store. Unreadable files are logged and
// skipped.
func Load(dir string) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	store := make(Store)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", slog.String("name", name), slog.Any("error", err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, nil
}

// Get returns the secret stored under name, falling back to the first
// non-empty environment variable in envVars.
func (s Store) Get(name string, envVars ...string) string {
	if v := s[name]; v != "" {
		return v
	}
	for _, env := range envVars {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}
