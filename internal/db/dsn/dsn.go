// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
)

// Create builds the MySQL Data Source Name from the configuration.
func Create(dbCfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}

// CreatePostgres builds a PostgreSQL connection URL from the configuration.
func CreatePostgres(dbCfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbCfg.DB.User, dbCfg.DB.Password),
		Host:     net.JoinHostPort(dbCfg.DB.Host, strconv.Itoa(dbCfg.DB.Port)),
		Path:     "/" + dbCfg.DB.Name,
		RawQuery: dbCfg.DB.Extras,
	}

	return u.String()
}

// CreateForEngine returns the connection string matching engine.
// sqlite uses the database name as file path.
func CreateForEngine(dbCfg *config.Config, engine string) string {
	switch engine {
	case config.EnginePostgres:
		return CreatePostgres(dbCfg)
	case config.EngineSQLite:
		return dbCfg.DB.Name
	default:
		return Create(dbCfg)
	}
}
