package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tidemark-io/tidemark/pkg/errors"
)

// Load reads a YAML file into config, expanding ${VAR} references from the
// environment before parsing.
func Load(path string, config interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is controlled by the caller
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeConfig, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), config); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeConfig, "failed to parse config file %s", path)
	}
	return nil
}

// Save writes config to a YAML file.
func Save(path string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrapf(err, errors.ErrorTypeConfig, "failed to write config file %s", path)
	}
	return nil
}

// expandEnv replaces every ${VAR} occurrence with the value of VAR. Unset
// variables expand to the empty string; bare $VAR is left untouched so DSNs
// with dollar signs survive.
func expandEnv(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start+2:], "}")
		if end == -1 {
			break
		}
		end += start + 2

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}

	b.WriteString(content)
	return b.String()
}
