// Package config loads the YAML configuration file and applies
// environment overrides for the settings that differ between
// deployments.
package config
