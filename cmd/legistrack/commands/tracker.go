package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/state"
	"git.home.luguber.info/inful/legistrack/internal/tracker"
)

// PollCmd implements the 'poll' command.
type PollCmd struct{}

func (p *PollCmd) Run(g *Global, root *CLI) error {
	comp, err := root.open(g)
	if err != nil {
		return err
	}
	defer func() { _ = comp.Close() }()

	report, err := comp.Loop.RunPollCycle(g.Ctx)
	if err != nil {
		return err
	}
	printMerge(root, "Poll", report)
	return nil
}

// BackfillCmd implements the 'backfill' command.
type BackfillCmd struct {
	Force       bool     `help:"Backfill even when the collection is already populated"`
	From        int      `help:"First parliament (defaults to tracker.historical_from)"`
	To          int      `help:"Last parliament (defaults to tracker.historical_to)"`
	MaxSessions int      `name:"max-sessions" help:"Sessions to try per parliament (defaults to tracker.max_sessions)"`
	Partition   []string `short:"p" help:"Explicit parliament-session partitions such as 44-1; overrides --from/--to"`
}

func (b *BackfillCmd) Run(g *Global, root *CLI) error {
	comp, err := root.open(g)
	if err != nil {
		return err
	}
	defer func() { _ = comp.Close() }()

	partitions, err := b.partitions(comp.Config.Tracker.HistoricalFrom, comp.Config.Tracker.HistoricalTo, comp.Config.Tracker.MaxSessions)
	if err != nil {
		return err
	}
	report, err := comp.Loop.RunBackfill(g.Ctx, partitions, b.Force)
	if err != nil {
		return err
	}

	printMerge(root, "Backfill", report.MergeReport)
	out := root.stdout()
	_, _ = fmt.Fprintf(out, "Partitions fetched: %s\n", joinPartitions(report.Fetched))
	_, _ = fmt.Fprintf(out, "Parliaments ended at: %s\n", joinPartitions(report.Ended))
	if len(report.Retired) > 0 {
		_, _ = fmt.Fprintf(out, "Died on the order paper: %d\n", len(report.Retired))
	}
	return nil
}

func (b *BackfillCmd) partitions(from, to, maxSessions int) ([]tracker.Partition, error) {
	if len(b.Partition) > 0 {
		out := make([]tracker.Partition, 0, len(b.Partition))
		for _, raw := range b.Partition {
			p, err := tracker.ParsePartition(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}
	if b.From > 0 {
		from = b.From
	}
	if b.To > 0 {
		to = b.To
	}
	if b.MaxSessions > 0 {
		maxSessions = b.MaxSessions
	}
	parts := tracker.EnumeratePartitions(from, to, maxSessions)
	if len(parts) == 0 {
		return nil, ferrors.ValidationError(fmt.Sprintf("no partitions between parliaments %d and %d", from, to)).Build()
	}
	return parts, nil
}

func printMerge(root *CLI, what string, r state.MergeReport) {
	_, _ = fmt.Fprintf(root.stdout(), "%s complete: %d new, %d changed, %d unchanged, %d skipped\n",
		what, r.New, r.Changed, r.Unchanged, r.Skipped)
	for _, t := range r.Transitions {
		if t.Change.Kind == bill.ChangeNew || t.Change.FromStage == t.Change.ToStage {
			continue
		}
		_, _ = fmt.Fprintf(root.stdout(), "  %s: %s -> %s\n", t.Key, t.Change.FromStage.Label(), t.Change.ToStage.Label())
	}
}

func joinPartitions(ps []tracker.Partition) string {
	if len(ps) == 0 {
		return "none"
	}
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}
