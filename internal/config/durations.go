package config

import "time"

// Duration accessors assume ValidateConfig has accepted the configuration.

func (t TrackerConfig) PollEvery() time.Duration            { return mustDuration(t.PollInterval) }
func (t TrackerConfig) CooldownAfterFailure() time.Duration { return mustDuration(t.FailureCooldown) }
func (t TrackerConfig) DelayBetweenRequests() time.Duration { return mustDuration(t.BackfillDelay) }
func (l LEGISinfoConfig) RequestTimeout() time.Duration     { return mustDuration(l.Timeout) }
func (l LEGISinfoConfig) CacheFor() time.Duration           { return mustDuration(l.CacheTTL) }
func (l LEGISinfoConfig) RetryInitial() time.Duration       { return mustDuration(l.RetryInitialDelay) }
func (l LEGISinfoConfig) RetryMax() time.Duration           { return mustDuration(l.RetryMaxDelay) }
func (g GazetteConfig) ScanEvery() time.Duration            { return mustDuration(g.ScanInterval) }
func (l LawsConfig) SyncEvery() time.Duration               { return mustDuration(l.SyncInterval) }

func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
