package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/legistrack/internal/config"
	"git.home.luguber.info/inful/legistrack/internal/daemon"
	"git.home.luguber.info/inful/legistrack/internal/observability"
)

// Global is passed to every command's Run.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"legistrack.yaml" env:"LEGISTRACK_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text or json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init        InitCmd        `cmd:"" help:"Write an example configuration file"`
	Daemon      DaemonCmd      `cmd:"" help:"Track bills continuously and serve the query API"`
	Poll        PollCmd        `cmd:"" help:"Fetch the current bill list once"`
	Backfill    BackfillCmd    `cmd:"" help:"Load historical parliaments"`
	Lookup      LookupCmd      `cmd:"" help:"Show a bill and its history"`
	Changes     ChangesCmd     `cmd:"" help:"List bills that changed since a point in time"`
	Summary     SummaryCmd     `cmd:"" help:"Summarize the tracked collection"`
	Digest      DigestCmd      `cmd:"" help:"Write a Markdown or HTML digest of recent changes"`
	Regulations RegulationsCmd `cmd:"" help:"Canada Gazette regulations"`
	Laws        LawsCmd        `cmd:"" help:"Consolidated Acts and regulations"`

	out io.Writer
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if config.NormalizeLogFormat(c.LogFormat) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(observability.NewContextHandler(handler)))
	return nil
}

func (c *CLI) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// open loads the configuration and builds the components. Callers close them.
func (c *CLI) open(g *Global) (*daemon.Components, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	return daemon.Open(g.Ctx, cfg, g.Logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
