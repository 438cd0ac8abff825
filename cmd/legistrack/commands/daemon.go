package commands

import (
	"git.home.luguber.info/inful/legistrack/internal/daemon"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	NoWatch bool `name:"no-watch" help:"Do not reload the configuration file when it changes"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	comp, err := root.open(g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := comp.Close(); cerr != nil {
			g.Logger.Warn("Failed to close components", logfields.Error(cerr))
		}
	}()

	watchPath := root.Config
	if d.NoWatch {
		watchPath = ""
	}
	return daemon.New(comp, watchPath).Run(g.Ctx)
}
