// Command docgraph builds document graphs from extraction records and
// exports them as JSON, CSV or XLSX, optionally keeping them in SQLite.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/brunobiangulo/docgraph"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"existingfile" help:"Config file (YAML or JSON)"`
	DB       string `name:"db" env:"DOCGRAPH_DB_PATH" type:"path" help:"SQLite database path"`
	LogLevel string `name:"log-level" env:"DOCGRAPH_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level"`
}

// config loads the config file (if any) and applies flag overrides.
func (g *Globals) config() (docgraph.Config, error) {
	cfg := docgraph.DefaultConfig()
	if g.Config != "" {
		var err error
		if cfg, err = docgraph.LoadConfig(g.Config); err != nil {
			return cfg, err
		}
	}
	if g.DB != "" {
		cfg.DBPath = g.DB
	}
	return cfg, nil
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Build   BuildCmd   `cmd:"" help:"Build graphs from record files"`
	Schema  SchemaCmd  `cmd:"" help:"Print the JSON Schema of the graph document"`
	Outline OutlineCmd `cmd:"" help:"Print the section outline of a stored graph"`
	List    ListCmd    `cmd:"" help:"List stored graphs"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a stored graph"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func setupLogging(level string) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	slog.SetDefault(slog.New(logger))
}

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("docgraph"),
		kong.Description("Document graph construction engine"),
		kong.UsageOnError(),
	)
	setupLogging(cli.LogLevel)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
