package config

import (
	"path/filepath"
)

// Default values. Paths are relative to storage.data_dir unless absolute.
const (
	DefaultDataDir           = "./data"
	DefaultBillsFile         = "bills.json"
	DefaultRegulationsFile   = "regulations.json"
	DefaultLawRepoDir        = "laws-lois-xml"
	DefaultLawIndexDB        = "laws.db"
	DefaultLEGISinfoURL      = "https://www.parl.ca/legisinfo/en/bills/xml"
	DefaultUserAgent         = "legistrack/1.0 (+https://git.home.luguber.info/inful/legistrack)"
	DefaultGazettePart1URL   = "https://gazette.gc.ca/rss/p1-eng.xml"
	DefaultGazettePart2URL   = "https://gazette.gc.ca/rss/p2-eng.xml"
	DefaultLawRepoURL        = "https://github.com/justicecanada/laws-lois-xml.git"
	DefaultLawBranch         = "main"
	DefaultNATSSubject       = "legistrack.changes"
	DefaultNATSBucket        = "legistrack-stages"
	DefaultCurrentParliament = 44
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// StorageDefaultApplier handles storage defaults and resolves relative paths.
type StorageDefaultApplier struct{}

func (StorageDefaultApplier) Domain() string { return "storage" }

func (StorageDefaultApplier) ApplyDefaults(cfg *Config) error {
	s := &cfg.Storage
	if s.DataDir == "" {
		s.DataDir = DefaultDataDir
	}
	s.BillsFile = underDataDir(s.DataDir, s.BillsFile, DefaultBillsFile)
	s.RegulationsFile = underDataDir(s.DataDir, s.RegulationsFile, DefaultRegulationsFile)
	s.LawRepoDir = underDataDir(s.DataDir, s.LawRepoDir, DefaultLawRepoDir)
	s.LawIndexDB = underDataDir(s.DataDir, s.LawIndexDB, DefaultLawIndexDB)
	if s.JournalDB != "" && !filepath.IsAbs(s.JournalDB) {
		s.JournalDB = filepath.Join(s.DataDir, s.JournalDB)
	}
	return nil
}

func underDataDir(dataDir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) || filepath.Dir(value) != "." {
		return value
	}
	return filepath.Join(dataDir, value)
}

// TrackerDefaultApplier handles poll loop defaults.
type TrackerDefaultApplier struct{}

func (TrackerDefaultApplier) Domain() string { return "tracker" }

func (TrackerDefaultApplier) ApplyDefaults(cfg *Config) error {
	t := &cfg.Tracker
	if t.PollInterval == "" {
		t.PollInterval = "4h"
	}
	if t.FailureCooldown == "" {
		t.FailureCooldown = "5m"
	}
	if t.BackfillDelay == "" {
		t.BackfillDelay = "1s"
	}
	if t.MinEntities <= 0 {
		t.MinEntities = 10
	}
	if t.CurrentParliament <= 0 {
		t.CurrentParliament = DefaultCurrentParliament
	}
	if t.HistoricalFrom <= 0 {
		t.HistoricalFrom = 35
	}
	if t.HistoricalTo <= 0 {
		t.HistoricalTo = t.CurrentParliament
	}
	if t.MaxSessions <= 0 {
		t.MaxSessions = 4
	}
	return nil
}

// LEGISinfoDefaultApplier handles fetcher defaults.
type LEGISinfoDefaultApplier struct{}

func (LEGISinfoDefaultApplier) Domain() string { return "legisinfo" }

func (LEGISinfoDefaultApplier) ApplyDefaults(cfg *Config) error {
	l := &cfg.LEGISinfo
	if l.BaseURL == "" {
		l.BaseURL = DefaultLEGISinfoURL
	}
	if l.Timeout == "" {
		l.Timeout = "30s"
	}
	if l.UserAgent == "" {
		l.UserAgent = DefaultUserAgent
	}
	if l.RequestsPerSecond <= 0 {
		l.RequestsPerSecond = 1
	}
	if l.CacheTTL == "" {
		l.CacheTTL = "24h"
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = 64 << 20
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 0
	}
	if l.MaxRetries == 0 {
		l.MaxRetries = 2
	}
	if m := NormalizeRetryBackoff(string(l.RetryBackoff)); m != "" {
		l.RetryBackoff = m
	} else {
		l.RetryBackoff = RetryBackoffExponential
	}
	if l.RetryInitialDelay == "" {
		l.RetryInitialDelay = "2s"
	}
	if l.RetryMaxDelay == "" {
		l.RetryMaxDelay = "30s"
	}
	return nil
}

// GazetteDefaultApplier handles regulation feed defaults.
type GazetteDefaultApplier struct{}

func (GazetteDefaultApplier) Domain() string { return "gazette" }

func (GazetteDefaultApplier) ApplyDefaults(cfg *Config) error {
	g := &cfg.Gazette
	if g.Part1URL == "" {
		g.Part1URL = DefaultGazettePart1URL
	}
	if g.Part2URL == "" {
		g.Part2URL = DefaultGazettePart2URL
	}
	if g.ScanInterval == "" {
		g.ScanInterval = "24h"
	}
	return nil
}

// LawsDefaultApplier handles law library defaults.
type LawsDefaultApplier struct{}

func (LawsDefaultApplier) Domain() string { return "laws" }

func (LawsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Laws.RepoURL == "" {
		cfg.Laws.RepoURL = DefaultLawRepoURL
	}
	if cfg.Laws.Branch == "" {
		cfg.Laws.Branch = DefaultLawBranch
	}
	if cfg.Laws.SyncInterval == "" {
		cfg.Laws.SyncInterval = "24h"
	}
	return nil
}

// NotifyDefaultApplier handles notification defaults.
type NotifyDefaultApplier struct{}

func (NotifyDefaultApplier) Domain() string { return "notify" }

func (NotifyDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNATSSubject
	}
	if cfg.Notify.KVBucket == "" {
		cfg.Notify.KVBucket = DefaultNATSBucket
	}
	return nil
}

// LoggingDefaultApplier normalizes logging enums.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// defaultAppliers run in order; storage first so later domains see resolved paths.
var defaultAppliers = []DefaultApplier{
	StorageDefaultApplier{},
	TrackerDefaultApplier{},
	LEGISinfoDefaultApplier{},
	GazetteDefaultApplier{},
	LawsDefaultApplier{},
	NotifyDefaultApplier{},
	LoggingDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
