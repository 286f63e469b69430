// Package config loads application settings from environment variables
// (ENGRAM_ prefix) and an optional YAML file via viper, and validates the
// result before anything else starts.
package config
