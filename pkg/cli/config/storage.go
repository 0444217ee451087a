package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/repository/failover"
	"github.com/seito-lab/taskfunnel/pkg/repository/postgres"
	"github.com/seito-lab/taskfunnel/pkg/repository/sqlite"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// Storage holds CLI flags for storage engine selection
type Storage struct {
	mode       string
	sqlitePath string

	pgHost     string
	pgPort     int
	pgUser     string
	pgPassword string
	pgDatabase string
}

// Flags returns CLI flags for storage configuration
func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-mode",
			Usage:       "Storage engine (postgres, sqlite or memory). postgres falls back to an ephemeral embedded store when unreachable",
			Category:    "Storage",
			Value:       "postgres",
			Sources:     cli.EnvVars("TASKFUNNEL_STORAGE_MODE"),
			Destination: &x.mode,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file path (sqlite mode)",
			Category:    "Storage",
			Value:       "tasks.db",
			Sources:     cli.EnvVars("TASKFUNNEL_SQLITE_PATH"),
			Destination: &x.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "postgres-host",
			Usage:       "PostgreSQL host",
			Category:    "Storage",
			Value:       "localhost",
			Sources:     cli.EnvVars("TASKFUNNEL_POSTGRES_HOST"),
			Destination: &x.pgHost,
		},
		&cli.IntFlag{
			Name:        "postgres-port",
			Usage:       "PostgreSQL port",
			Category:    "Storage",
			Value:       5432,
			Sources:     cli.EnvVars("TASKFUNNEL_POSTGRES_PORT"),
			Destination: &x.pgPort,
		},
		&cli.StringFlag{
			Name:        "postgres-user",
			Usage:       "PostgreSQL user",
			Category:    "Storage",
			Value:       "taskfunnel",
			Sources:     cli.EnvVars("TASKFUNNEL_POSTGRES_USER"),
			Destination: &x.pgUser,
		},
		&cli.StringFlag{
			Name:        "postgres-password",
			Usage:       "PostgreSQL password",
			Category:    "Storage",
			Sources:     cli.EnvVars("TASKFUNNEL_POSTGRES_PASSWORD"),
			Destination: &x.pgPassword,
		},
		&cli.StringFlag{
			Name:        "postgres-database",
			Usage:       "PostgreSQL database name",
			Category:    "Storage",
			Value:       "taskfunnel",
			Sources:     cli.EnvVars("TASKFUNNEL_POSTGRES_DB"),
			Destination: &x.pgDatabase,
		},
	}
}

// Mode returns the configured storage mode
func (x *Storage) Mode() string {
	return x.mode
}

// Configure builds the storage engine for the configured mode. The caller is
// responsible for calling Close on the returned engine. No connection is made
// here; the engine initializes lazily on first use (or via Initialize).
func (x *Storage) Configure() (interfaces.Engine, error) {
	switch x.mode {
	case "postgres":
		primary := postgres.New(postgres.Config{
			Host:     x.pgHost,
			Port:     x.pgPort,
			User:     x.pgUser,
			Password: x.pgPassword,
			Database: x.pgDatabase,
		})
		logging.Default().Info("Using PostgreSQL storage with embedded fallback",
			"host", x.pgHost, "port", x.pgPort, "database", x.pgDatabase,
		)
		return failover.New(primary, sqlite.Ephemeral()), nil

	case "sqlite":
		logging.Default().Info("Using SQLite storage", "path", x.sqlitePath)
		return sqlite.New(x.sqlitePath), nil

	case "memory":
		logging.Default().Info("Using in-memory storage (development mode)")
		return sqlite.Ephemeral(), nil

	default:
		return nil, goerr.New("invalid storage mode", goerr.V("mode", x.mode))
	}
}
