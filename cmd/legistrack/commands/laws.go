package commands

import (
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/legistrack/internal/daemon"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/lawlib"
)

// LawsCmd groups the law library commands.
type LawsCmd struct {
	Sync        LawsSyncCmd        `cmd:"" help:"Clone or update the law repository and rebuild the index"`
	Search      LawsSearchCmd      `cmd:"" help:"Search Acts and regulations by title"`
	Get         LawsGetCmd         `cmd:"" help:"Show one law by identifier or title"`
	Regulations LawsRegulationsCmd `cmd:"" help:"List regulations made under an Act"`
	Stats       LawsStatsCmd       `cmd:"" help:"Show index statistics"`
}

func withLaws(g *Global, root *CLI, fn func(*daemon.Components) error) error {
	comp, err := root.open(g)
	if err != nil {
		return err
	}
	defer func() { _ = comp.Close() }()
	return fn(comp)
}

// LawsSyncCmd implements 'laws sync'.
type LawsSyncCmd struct {
	Reindex bool `help:"Rebuild the index even when the repository did not change"`
}

func (l *LawsSyncCmd) Run(g *Global, root *CLI) error {
	return withLaws(g, root, func(c *daemon.Components) error {
		rep, err := c.Laws.Sync(g.Ctx)
		if err != nil {
			return err
		}
		if l.Reindex && !rep.Reindexed {
			if rep, err = c.Laws.Reindex(g.Ctx); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintf(root.stdout(), "Repository at %s (changed: %t); index: %d Acts, %d regulations\n",
			shortHash(rep.Repo.After), rep.Repo.Changed, rep.Counts.Acts, rep.Counts.Regulations)
		return nil
	})
}

// LawsSearchCmd implements 'laws search'.
type LawsSearchCmd struct {
	Query string `arg:"" help:"Words in the title"`
	Type  string `short:"t" help:"act or regulation"`
	JSON  bool   `help:"Print JSON"`
}

func (l *LawsSearchCmd) Run(g *Global, root *CLI) error {
	var typ lawlib.Type
	if l.Type != "" {
		t, ok := lawlib.ParseType(l.Type)
		if !ok {
			return ferrors.ValidationError("type must be act or regulation").WithContext("type", l.Type).Build()
		}
		typ = t
	}
	return withLaws(g, root, func(c *daemon.Components) error {
		laws, err := c.Laws.Search(g.Ctx, l.Query, typ)
		if err != nil {
			return err
		}
		return printLaws(root, laws, l.JSON)
	})
}

// LawsGetCmd implements 'laws get'.
type LawsGetCmd struct {
	Ref   string `arg:"" help:"Identifier such as P-21, or a title"`
	XML   bool   `help:"Print the XML text"`
	Title bool   `help:"Treat the argument as a title"`
}

func (l *LawsGetCmd) Run(g *Global, root *CLI) error {
	return withLaws(g, root, func(c *daemon.Components) error {
		get := c.Laws.Get
		if l.Title {
			get = c.Laws.GetByTitle
		}
		text, err := get(g.Ctx, l.Ref)
		if err != nil {
			return err
		}
		if l.XML {
			_, err = root.stdout().Write(text.Content)
			return err
		}
		return writeJSON(root.stdout(), text.Law)
	})
}

// LawsRegulationsCmd implements 'laws regulations'.
type LawsRegulationsCmd struct {
	Act  string `arg:"" help:"Act title, e.g. \"Privacy Act\""`
	JSON bool   `help:"Print JSON"`
}

func (l *LawsRegulationsCmd) Run(g *Global, root *CLI) error {
	return withLaws(g, root, func(c *daemon.Components) error {
		laws, err := c.Laws.RegulationsForAct(g.Ctx, l.Act)
		if err != nil {
			return err
		}
		return printLaws(root, laws, l.JSON)
	})
}

// LawsStatsCmd implements 'laws stats'.
type LawsStatsCmd struct{}

func (l *LawsStatsCmd) Run(g *Global, root *CLI) error {
	return withLaws(g, root, func(c *daemon.Components) error {
		stats, err := c.Laws.Stats(g.Ctx)
		if err != nil {
			return err
		}
		return writeJSON(root.stdout(), stats)
	})
}

func printLaws(root *CLI, laws []lawlib.Law, asJSON bool) error {
	if asJSON {
		if laws == nil {
			laws = []lawlib.Law{}
		}
		return writeJSON(root.stdout(), laws)
	}
	tw := tabwriter.NewWriter(root.stdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTYPE\tTITLE")
	for _, law := range laws {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", law.ID, law.Type, law.Title)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "(none)"
	}
	return h
}
