// Package main provides the entry point of go-settings.
// It stores named configuration values with gorm and serves them through a
// read-through cache (memory, filesystem, mysql or postgres) that is invalidated
// on every write. Settings are managed with the CLI or the JSON API served by fiber.
package main
