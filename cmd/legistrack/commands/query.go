package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/report"
	"git.home.luguber.info/inful/legistrack/internal/state"
)

// openBills opens only the bill collection; query commands need nothing else.
func openBills(g *Global, root *CLI) (*state.Store, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	return state.Open(cfg.Storage.BillsFile, state.WithLogger(g.Logger))
}

// LookupCmd implements the 'lookup' command.
type LookupCmd struct {
	ID      string `arg:"" help:"Bill number, e.g. C-11"`
	Session string `short:"s" help:"Restrict to one parliament-session, e.g. 44-1"`
	JSON    bool   `help:"Print JSON"`
}

func (l *LookupCmd) Run(g *Global, root *CLI) error {
	bills, err := openBills(g, root)
	if err != nil {
		return err
	}
	id := strings.ToUpper(strings.TrimSpace(l.ID))
	views := report.Lookup(bills, l.Session, id, time.Now())
	if len(views) == 0 {
		return ferrors.NotFoundError(fmt.Sprintf("bill %s not found", id)).WithContext("session", l.Session).Build()
	}
	if l.JSON {
		return writeJSON(root.stdout(), views)
	}

	out := root.stdout()
	for i, v := range views {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintf(out, "%s (%s) %s\n", v.ID, v.Session, v.Title)
		_, _ = fmt.Fprintf(out, "  Stage:          %s\n", v.StageLabel)
		_, _ = fmt.Fprintf(out, "  Classification: %s\n", v.Classification)
		if v.Sponsor != "" {
			_, _ = fmt.Fprintf(out, "  Sponsor:        %s\n", v.Sponsor)
		}
		if v.DaysSinceAssent != nil {
			_, _ = fmt.Fprintf(out, "  Royal assent:   %s (%d days ago)\n", v.AssentDate.Format(time.DateOnly), *v.DaysSinceAssent)
		}
		if v.DaysSinceActivity != nil {
			_, _ = fmt.Fprintf(out, "  Last activity:  %s (%d days ago)\n", v.LastActivity.Format(time.DateOnly), *v.DaysSinceActivity)
		}
		if v.DiedOnOrderPaper {
			_, _ = fmt.Fprintln(out, "  Died on the order paper")
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, h := range v.History {
			amended := ""
			if h.Amended {
				amended = "amended"
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", h.Timestamp.Format(time.DateOnly), h.Stage.Label(), h.StatusText, amended)
		}
		_ = tw.Flush()
	}
	return nil
}

// ChangesCmd implements the 'changes' command.
type ChangesCmd struct {
	Since time.Time `required:"" help:"RFC 3339 timestamp, e.g. 2024-03-01T00:00:00Z"`
	JSON  bool      `help:"Print JSON"`
}

func (c *ChangesCmd) Run(g *Global, root *CLI) error {
	bills, err := openBills(g, root)
	if err != nil {
		return err
	}
	now := time.Now()
	changed := bills.ListChanged(c.Since)
	views := make([]report.BillView, 0, len(changed))
	for _, e := range changed {
		views = append(views, report.View(e, now))
	}
	if c.JSON {
		return writeJSON(root.stdout(), views)
	}
	tw := tabwriter.NewWriter(root.stdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHANGED\tBILL\tSESSION\tSTAGE\tTITLE")
	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.LastChangedAt.Format(time.DateOnly), v.ID, v.Session, v.StageLabel, v.Title)
	}
	return tw.Flush()
}

// SummaryCmd implements the 'summary' command.
type SummaryCmd struct {
	JSON bool `help:"Print JSON"`
}

func (s *SummaryCmd) Run(g *Global, root *CLI) error {
	bills, err := openBills(g, root)
	if err != nil {
		return err
	}
	sum := report.Summarize(bills.List(), time.Now())
	if s.JSON {
		return writeJSON(root.stdout(), sum)
	}

	out := root.stdout()
	_, _ = fmt.Fprintf(out, "Bills tracked: %d (%d active, %d died on the order paper)\n", sum.Total, sum.Active, sum.DiedOnOrderPaper)
	_, _ = fmt.Fprintf(out, "Royal assent: %d received, %d pending\n", sum.AssentReceived, sum.AssentPending)
	_, _ = fmt.Fprintf(out, "With special recommendation: %d\n", sum.SpecialRecommendation)
	_, _ = fmt.Fprintf(out, "Activity: %d in 30 days, %d in 90, %d in 180, %d older\n",
		sum.Activity.Recent, sum.Activity.Moderate, sum.Activity.Stale, sum.Activity.VeryStale)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\nSTAGE\tBILLS")
	for _, st := range stagesInOrder(sum.ByStage) {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", st.Label(), sum.ByStage[st])
	}
	if len(sum.TopSponsors) > 0 {
		_, _ = fmt.Fprintln(tw, "\nSPONSOR\tBILLS")
		for _, sp := range sum.TopSponsors {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", sp.Sponsor, sp.Bills)
		}
	}
	return tw.Flush()
}

// DigestCmd implements the 'digest' command.
type DigestCmd struct {
	Since  time.Time `help:"Start of the period (default: 24 hours ago)"`
	HTML   bool      `help:"Render HTML instead of Markdown"`
	Output string    `short:"o" help:"Write to this file instead of stdout"`
	Verify string    `help:"Check the fingerprint of an existing digest file and exit" type:"existingfile"`
}

func (d *DigestCmd) Run(g *Global, root *CLI) error {
	if d.Verify != "" {
		return verifyDigest(root, d.Verify)
	}
	bills, err := openBills(g, root)
	if err != nil {
		return err
	}
	now := time.Now()
	since := d.Since
	if since.IsZero() {
		since = now.Add(-24 * time.Hour)
	}
	digest, err := report.BuildDigest(bills.ListChanged(since), since, now)
	if err != nil {
		return ferrors.InternalError("failed to build digest").WithCause(err).Build()
	}
	body := digest.Markdown
	if d.HTML {
		if body, err = report.RenderHTML(digest.Markdown); err != nil {
			return ferrors.InternalError("failed to render digest").WithCause(err).Build()
		}
	}

	if d.Output == "" {
		_, err = root.stdout().Write(body)
		return err
	}
	if err := os.WriteFile(d.Output, body, 0o600); err != nil {
		return ferrors.PersistenceError("failed to write digest").WithCause(err).WithContext("path", d.Output).Build()
	}
	g.Logger.Info("Digest written", "path", d.Output, "bills", digest.Bills, "fingerprint", digest.Fingerprint)
	return nil
}

func verifyDigest(root *CLI, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ferrors.PersistenceError("failed to read digest").WithCause(err).WithContext("path", path).Build()
	}
	ok, err := report.VerifyDigest(data)
	if err != nil {
		return ferrors.ValidationError("digest has no readable fingerprint").WithCause(err).WithContext("path", path).Build()
	}
	if !ok {
		return ferrors.ValidationError("digest content does not match its fingerprint").WithContext("path", path).Build()
	}
	_, _ = fmt.Fprintf(root.stdout(), "%s: fingerprint OK\n", path)
	return nil
}

func stagesInOrder(counts map[bill.Stage]int) []bill.Stage {
	var out []bill.Stage
	for _, st := range bill.Stages {
		if counts[st] > 0 {
			out = append(out, st)
		}
	}
	return out
}
