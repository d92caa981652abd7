package config

import (
	"errors"
)

var (
	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine is not supported.
	ErrUnknownGormEngine = errors.New("config db.gormEngine must be one of mysql, postgres, sqlite")

	// ErrUnknownCacheBackend error if config cache.backend is not supported.
	ErrUnknownCacheBackend = errors.New("config cache.backend must be one of memory, filesystem, mysql, postgres")

	// ErrCachePathEmpty error if the filesystem cache has no directory.
	ErrCachePathEmpty = errors.New("config cache.path can not be empty for the filesystem backend")

	// ErrDefaultNameEmpty error if a seeded default setting has no name.
	ErrDefaultNameEmpty = errors.New("config defaults.name can not be empty")
)
