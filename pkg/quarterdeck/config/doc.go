// Package config supplies the core's construction-time parameters:
// service settings resolved from defaults, a config file (YAML, JSON, or
// TOML), and QUARTERDECK_* environment variables, plus the JSON bindings
// file that maps control-surface keys to actions.
package config
