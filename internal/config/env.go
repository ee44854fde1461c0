package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const envPath = "_env"

// Environment variable prefixes included in the _env bundle. These cover
// the orchestrator endpoint, storage credentials, and registry settings
// the stack's setup scripts expect.
var envPrefixes = []string{"DOCKER_", "MANTA_", "CONSUL_", "TRITON_", "COMPOSE_"}

// EnsureEnvFile materializes the _env credentials bundle if it is not
// already mounted from the test environment. The Manta private key is
// read from the Docker certificate directory and flattened so it
// survives being passed through a single environment variable.
func EnsureEnvFile() error {
	return ensureEnvFileAt(envPath)
}

func ensureEnvFileAt(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	certPath := os.Getenv("DOCKER_CERT_PATH")
	if certPath != "" {
		key, err := os.ReadFile(filepath.Join(certPath, "key.pem"))
		if err != nil {
			return fmt.Errorf("reading private key: %w", err)
		}

		os.Setenv("MANTA_PRIVATE_KEY", flattenKey(string(key)))
	}

	return dumpEnvironment(path)
}

// flattenKey joins the key's lines with '#' so the PEM block fits in one
// environment variable; the stack's setup scripts reverse this.
func flattenKey(key string) string {
	lines := strings.Split(key, "\n")

	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			trimmed = append(trimmed, line)
		}
	}

	return strings.Join(trimmed, "#")
}

// dumpEnvironment writes the matching environment variables to path as
// KEY=VALUE lines, sorted for stable output.
func dumpEnvironment(path string) error {
	var lines []string
	for _, entry := range os.Environ() {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}

		for _, prefix := range envPrefixes {
			if strings.HasPrefix(key, prefix) {
				lines = append(lines, entry)
				break
			}
		}
	}
	sort.Strings(lines)

	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
