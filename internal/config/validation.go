package config

import (
	"fmt"
	"net/url"
	"time"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// ValidateConfig checks the configuration after defaults have been applied.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, step := range []func() error{
		v.validateTracker,
		v.validateLEGISinfo,
		v.validateGazette,
		v.validateLaws,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validateTracker() error {
	t := cv.config.Tracker
	for field, raw := range map[string]string{
		"tracker.poll_interval":    t.PollInterval,
		"tracker.failure_cooldown": t.FailureCooldown,
	} {
		if err := positiveDuration(field, raw); err != nil {
			return err
		}
	}
	if d, err := time.ParseDuration(t.BackfillDelay); err != nil || d < 0 {
		return invalid("tracker.backfill_delay", t.BackfillDelay, "must be a non-negative duration")
	}
	if t.HistoricalFrom > t.HistoricalTo {
		return invalid("tracker.historical_from", fmt.Sprint(t.HistoricalFrom),
			fmt.Sprintf("must not exceed historical_to (%d)", t.HistoricalTo))
	}
	if t.DisableBackfill && t.ForceBackfill {
		return ferrors.ValidationError("tracker.disable_backfill and tracker.force_backfill are mutually exclusive").Build()
	}
	return nil
}

func (cv *configurationValidator) validateLEGISinfo() error {
	l := cv.config.LEGISinfo
	if err := absoluteURL("legisinfo.base_url", l.BaseURL); err != nil {
		return err
	}
	for field, raw := range map[string]string{
		"legisinfo.timeout":             l.Timeout,
		"legisinfo.cache_ttl":           l.CacheTTL,
		"legisinfo.retry_initial_delay": l.RetryInitialDelay,
		"legisinfo.retry_max_delay":     l.RetryMaxDelay,
	} {
		if err := positiveDuration(field, raw); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateGazette() error {
	g := cv.config.Gazette
	if !g.Enabled {
		return nil
	}
	if err := absoluteURL("gazette.part1_url", g.Part1URL); err != nil {
		return err
	}
	if err := absoluteURL("gazette.part2_url", g.Part2URL); err != nil {
		return err
	}
	return positiveDuration("gazette.scan_interval", g.ScanInterval)
}

func (cv *configurationValidator) validateLaws() error {
	l := cv.config.Laws
	if !l.Enabled {
		return nil
	}
	if l.RepoURL == "" {
		return invalid("laws.repo_url", l.RepoURL, "is required when laws are enabled")
	}
	return positiveDuration("laws.sync_interval", l.SyncInterval)
}

func positiveDuration(field, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return invalid(field, raw, "must be a positive duration")
	}
	return nil
}

func absoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid(field, raw, "must be an absolute URL")
	}
	return nil
}

func invalid(field, value, reason string) error {
	return ferrors.ValidationError(fmt.Sprintf("%s %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
