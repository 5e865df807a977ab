// Package config loads and validates application settings from defaults,
// an optional YAML file, and RECALL_-prefixed environment variables.
// Components receive typed sections rather than reading the environment
// themselves.
package config
