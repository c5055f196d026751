package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file at path into conf.
//
// Unknown fields are rejected. If expandEnv is true, references to ${VAR} or
// $VAR are replaced with the corresponding environment variable before
// parsing, where ${VAR:default} falls back to 'default' if VAR is unset.
func Load(conf interface{}, path string, expandEnv bool) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %s: %w", path, err)
	}

	if expandEnv {
		buf = []byte(expandEnvDefault(string(buf)))
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	if err := dec.Decode(conf); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}

	return nil
}

var envRefPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*):([^}]*)\}`)

// expandEnvDefault handles the ${VAR:default} form, then leaves the remaining
// references to os.ExpandEnv.
func expandEnvDefault(s string) string {
	s = envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRefPattern.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok {
			return v
		}
		// Escape '$' so os.ExpandEnv leaves the default untouched.
		return strings.ReplaceAll(m[2], "$", "$$")
	})
	return os.Expand(s, func(key string) string {
		if key == "$" {
			return "$"
		}
		return os.Getenv(key)
	})
}
