package config

import (
	"time"

	"github.com/GoPowerDNS-Admin/go-settings/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Cache     Cache
	Log       logger.Log
	Title     string
	Webserver Webserver
	Defaults  []DefaultSetting // settings created on start when missing
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown in seconds
	CheckAliveURI  string // liveness endpoint, excluded from the access log if Log.DisableCheckAlive
}

// Cache holds the settings cache configuration.
type Cache struct {
	Enabled            bool          // false = every read goes to the database
	Backend            string        // memory, filesystem, mysql, postgres
	TTL                time.Duration // lifetime of a cache entry, 0 = until invalidated
	Path               string        // directory of the filesystem backend
	Table              string        // table of the mysql and postgres backends
	GCInterval         time.Duration // expired entry sweep interval of the mysql and postgres backends
	StrictInvalidation bool          // fail writes whose cache invalidation failed
}

// DefaultSetting is a setting seeded into an empty database.
type DefaultSetting struct {
	Name    string
	Value   *string
	Section *string
	Comment *string
}
