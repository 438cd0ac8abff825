package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
)

// RegulationsCmd groups the Gazette commands.
type RegulationsCmd struct {
	Scan RegulationsScanCmd `cmd:"" help:"Read the Gazette Part I and Part II feeds once"`
	List RegulationsListCmd `cmd:"" help:"List recorded regulations"`
}

// RegulationsScanCmd implements 'regulations scan'.
type RegulationsScanCmd struct{}

func (r *RegulationsScanCmd) Run(g *Global, root *CLI) error {
	comp, err := root.open(g)
	if err != nil {
		return err
	}
	defer func() { _ = comp.Close() }()

	rep, err := comp.Gazette.Scan(g.Ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(root.stdout(), "Scan complete: %d seen, %d new, %d replaced, %d enacted, %d duplicates (%d tracked)\n",
		rep.Seen, rep.Added, rep.Replaced, rep.Promoted, rep.Duplicates, comp.Regulations.Len())
	return nil
}

// RegulationsListCmd implements 'regulations list'.
type RegulationsListCmd struct {
	Stage string `help:"PROPOSED or ENACTED"`
	Query string `short:"q" help:"Match the name or enabling Act"`
	Limit int    `short:"n" help:"Show at most this many" default:"50"`
	JSON  bool   `help:"Print JSON"`
}

func (r *RegulationsListCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	store, err := regulation.Open(cfg.Storage.RegulationsFile, g.Logger)
	if err != nil {
		return err
	}
	stage := regulation.Stage(strings.ToUpper(r.Stage))
	if stage != "" && !stage.Valid() {
		return ferrors.ValidationError("stage must be PROPOSED or ENACTED").Build()
	}
	regs := store.Filter(stage, r.Query)
	if r.Limit > 0 && len(regs) > r.Limit {
		regs = regs[:r.Limit]
	}
	if r.JSON {
		return writeJSON(root.stdout(), regs)
	}
	tw := tabwriter.NewWriter(root.stdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PUBLISHED\tSTAGE\tID\tNAME")
	for _, reg := range regs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", reg.Published.Format(time.DateOnly), reg.Stage, reg.RegistrationID, reg.Name)
	}
	return tw.Flush()
}
