package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySession    = "session"
	KeyBillID     = "bill_id"
	KeyKey        = "key"
	KeyStage      = "stage"
	KeyFromStage  = "from_stage"
	KeyPartition  = "partition"
	KeyCycleID    = "cycle_id"
	KeyPhase      = "phase"
	KeyCount      = "count"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyRegID      = "registration_id"
	KeyLawID      = "law_id"
	KeyJob        = "job"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Session(s string) slog.Attr         { return slog.String(KeySession, s) }
func BillID(id string) slog.Attr         { return slog.String(KeyBillID, id) }
func Key(k string) slog.Attr             { return slog.String(KeyKey, k) }
func Stage(s string) slog.Attr           { return slog.String(KeyStage, s) }
func FromStage(s string) slog.Attr       { return slog.String(KeyFromStage, s) }
func Partition(p string) slog.Attr       { return slog.String(KeyPartition, p) }
func CycleID(id string) slog.Attr        { return slog.String(KeyCycleID, id) }
func Phase(p string) slog.Attr           { return slog.String(KeyPhase, p) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func RegistrationID(id string) slog.Attr { return slog.String(KeyRegID, id) }
func LawID(id string) slog.Attr          { return slog.String(KeyLawID, id) }
func Job(name string) slog.Attr          { return slog.String(KeyJob, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
