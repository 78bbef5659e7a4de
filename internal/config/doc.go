// Package config loads, validates, and normalizes sheaf's TOML configuration.
//
// The configuration groups settings by subsystem (paths, grouping thresholds,
// oracle connection, artifact storage, logging). Load applies repository
// defaults first, then overlays the user's file, expands home-relative paths,
// and validates the result; callers can rely on a returned Config being
// usable without further checks.
package config
