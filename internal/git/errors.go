package git

import (
	"strings"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	var b *ferrors.ErrorBuilder
	switch {
	case strings.Contains(l, "repository not found") || strings.Contains(l, "does not exist"):
		b = ferrors.NotFoundError("git repository not found")
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		b = ferrors.TransportError("git remote rate limited").RateLimit()
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "timeout") || strings.Contains(l, "no route to host") ||
		strings.Contains(l, "connection refused"):
		b = ferrors.TransportError("git remote unreachable")
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		b = ferrors.ConfigError("unsupported git protocol")
	default:
		b = ferrors.GitError("git operation failed")
	}
	return b.WithCause(err).WithContext("op", op).WithContext("url", url).Build()
}
