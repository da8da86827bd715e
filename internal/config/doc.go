// Package config loads, normalizes, and validates ffkit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from --config, ~/.config/ffkit/config.toml,
// or ./ffkit.toml. The Config type centralizes the tool binaries, encoding
// defaults, batch behaviour, and the bits-per-pixel quality table.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
