// Package config loads, parses and validates application settings from an
// optional YAML file and SCRY_ environment variables. Settings are grouped
// by the component that consumes them.
package config
