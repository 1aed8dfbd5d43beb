// Package config defines the fixed locations used by a provisioning run and
// provides helpers to load, validate and save them in YAML format.
//
// Every field has a built-in default; a YAML file only overrides what it sets.
package config
