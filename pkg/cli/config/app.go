package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	model "github.com/seito-lab/taskfunnel/pkg/domain/model/config"
)

// App holds CLI flags for the optional application config file
type App struct {
	path string
}

// appFile is the TOML layout of the application config file
type appFile struct {
	Replies model.Replies `toml:"replies"`
}

// Flags returns CLI flags for app configuration
func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "app-config",
			Usage:       "Path to a TOML file overriding reply templates",
			Category:    "App",
			Sources:     cli.EnvVars("TASKFUNNEL_APP_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Configure loads the reply templates, falling back to the built-in defaults
// when no file is configured. Fields the file omits keep their defaults.
func (x *App) Configure() (model.Replies, error) {
	if x.path == "" {
		return model.DefaultReplies(), nil
	}

	raw, err := os.ReadFile(x.path)
	if err != nil {
		return model.Replies{}, goerr.Wrap(err, "failed to read app config", goerr.V("path", x.path))
	}

	var file appFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return model.Replies{}, goerr.Wrap(err, "failed to parse app config", goerr.V("path", x.path))
	}

	file.Replies.FillDefaults()
	if err := file.Replies.Validate(); err != nil {
		return model.Replies{}, goerr.Wrap(err, "invalid reply templates", goerr.V("path", x.path))
	}
	return file.Replies, nil
}
