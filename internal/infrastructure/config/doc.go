// Package config loads and validates Wavelink configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. The YAML file passed to Load
//  3. WAVELINK_* environment variables
//
// The devices list is the authoritative inventory of speakers to poll;
// a device that is not listed here never enters the registry.
package config
