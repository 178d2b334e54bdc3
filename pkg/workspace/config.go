package workspace

import (
	"os"
	"time"
)

// Config holds the settings of one workspace session.
type Config struct {
	// Root is the Drupal web root (the directory holding core/ and
	// modules/).
	Root string

	// AllowedDynamicPrefixes lists name prefixes generated at runtime;
	// unresolved identifiers under them are never diagnosed.
	AllowedDynamicPrefixes []string

	// Style tool settings.
	PhpcsBin      string
	PhpcbfBin     string
	PhpcsStandard string

	// Lint memoization.
	MemoSize int
	MemoTTL  time.Duration

	// Watch enables live rescans of the custom tree.
	Watch bool
}

// DefaultConfig returns a default configuration.
func DefaultConfig(root string) Config {
	return Config{
		Root: root,
		AllowedDynamicPrefixes: []string{
			"plugin.manager.",
			"logger.channel.",
			"cache_context.",
			"keyvalue",
		},
		PhpcsStandard: "Drupal",
		MemoSize:      256,
		MemoTTL:       5 * time.Minute,
		Watch:         true,
	}
}

// ApplyEnv layers environment overrides onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DRUPAL_LSP_PHPCS_BIN"); v != "" {
		c.PhpcsBin = v
	}
	if v := os.Getenv("DRUPAL_LSP_PHPCBF_BIN"); v != "" {
		c.PhpcbfBin = v
	}
	if v := os.Getenv("DRUPAL_LSP_PHPCS_STANDARD"); v != "" {
		c.PhpcsStandard = v
	}
}
