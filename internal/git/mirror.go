package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// Mirror is a local working copy of one remote branch.
type Mirror struct {
	URL    string
	Branch string // empty follows the remote default branch
	Path   string
	Depth  int // 0 fetches full history
	Logger *slog.Logger
}

// SyncResult describes what Sync did.
type SyncResult struct {
	Path    string
	Branch  string
	Before  string // commit before sync, empty after a fresh clone
	After   string
	Cloned  bool
	Changed bool
}

func (m *Mirror) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Sync clones the mirror when it is missing or not a repository, and
// otherwise fetches and moves the branch to the remote head.
func (m *Mirror) Sync(ctx context.Context) (SyncResult, error) {
	if _, err := os.Stat(filepath.Join(m.Path, ".git")); err != nil {
		return m.clone(ctx)
	}
	repository, err := git.PlainOpen(m.Path)
	if err != nil {
		m.logger().Warn("Mirror is not a usable repository, re-cloning", logfields.Path(m.Path), logfields.Error(err))
		return m.clone(ctx)
	}
	return m.update(ctx, repository)
}

func (m *Mirror) clone(ctx context.Context) (SyncResult, error) {
	m.logger().Info("Cloning repository", logfields.URL(m.URL), logfields.Path(m.Path))
	if err := os.RemoveAll(m.Path); err != nil {
		return SyncResult{}, fmt.Errorf("remove existing directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o750); err != nil {
		return SyncResult{}, fmt.Errorf("create parent directory: %w", err)
	}

	opts := &git.CloneOptions{URL: m.URL, Depth: m.Depth, Tags: git.NoTags}
	if m.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(m.Branch)
		opts.SingleBranch = true
	}
	repository, err := git.PlainCloneContext(ctx, m.Path, false, opts)
	if err != nil {
		return SyncResult{}, ClassifyGitError(err, "clone", m.URL)
	}

	res := SyncResult{Path: m.Path, Cloned: true, Changed: true}
	if head, herr := repository.Head(); herr == nil {
		res.After = head.Hash().String()
		res.Branch = head.Name().Short()
	}
	m.logger().Info("Repository cloned", logfields.URL(m.URL), slog.String("commit", short(res.After)))
	return res, nil
}

func (m *Mirror) update(ctx context.Context, repository *git.Repository) (SyncResult, error) {
	res := SyncResult{Path: m.Path}
	if head, err := repository.Head(); err == nil {
		res.Before = head.Hash().String()
	}

	fetchOpts := &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		Depth:      m.Depth,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	}
	if err := repository.FetchContext(ctx, fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return res, ClassifyGitError(err, "fetch", m.URL)
	}

	branch := m.resolveBranch(repository)
	res.Branch = branch
	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return res, ClassifyGitError(fmt.Errorf("remote ref %s: %w", branch, err), "update", m.URL)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return res, ClassifyGitError(err, "worktree", m.URL)
	}
	localName := plumbing.NewBranchReferenceName(branch)
	_, lerr := repository.Reference(localName, true)
	if err := wt.Checkout(&git.CheckoutOptions{Branch: localName, Create: lerr != nil, Force: true}); err != nil {
		return res, ClassifyGitError(fmt.Errorf("checkout %s: %w", branch, err), "update", m.URL)
	}

	if res.Before != "" {
		ff, aerr := isAncestor(repository, plumbing.NewHash(res.Before), remoteRef.Hash())
		if aerr != nil {
			m.logger().Warn("Ancestor check failed", logfields.Error(aerr))
		}
		if !ff {
			m.logger().Warn("Mirror diverged from remote, hard resetting", slog.String("branch", branch))
		}
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return res, ClassifyGitError(fmt.Errorf("reset: %w", err), "update", m.URL)
	}

	res.After = remoteRef.Hash().String()
	res.Changed = res.After != res.Before
	if res.Changed {
		m.logger().Info("Mirror updated", slog.String("branch", branch),
			slog.String("from", short(res.Before)), slog.String("to", short(res.After)))
	} else {
		m.logger().Info("Mirror already up-to-date", slog.String("branch", branch), slog.String("commit", short(res.After)))
	}
	return res, nil
}

// resolveBranch picks the configured branch, then the checked-out branch,
// then the remote default, then "main".
func (m *Mirror) resolveBranch(repository *git.Repository) string {
	if m.Branch != "" {
		return m.Branch
	}
	if head, err := repository.Head(); err == nil && head.Name().IsBranch() {
		return head.Name().Short()
	}
	if ref, err := repository.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), true); err == nil {
		if t := ref.Target(); t != "" {
			return plumbing.ReferenceName(t).Short()
		}
	}
	return "main"
}

// Head returns the checked-out commit of the mirror, or "" when there is none.
func (m *Mirror) Head() string {
	repository, err := git.PlainOpen(m.Path)
	if err != nil {
		return ""
	}
	head, err := repository.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
