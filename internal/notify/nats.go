package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// StageEntry is the value kept per bill in the key-value bucket.
type StageEntry struct {
	Key       string    `json:"key"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	CycleID   string    `json:"cycle_id"`
}

// NATS publishes each change to "<subject>.<kind>" on JetStream and keeps
// the latest stage of every bill in a key-value bucket.
type NATS struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
	logger  *slog.Logger
}

// NewNATS connects to url and opens or creates bucket.
func NewNATS(ctx context.Context, url, subject, bucket string, logger *slog.Logger) (*NATS, error) {
	if url == "" {
		return nil, ferrors.ConfigError("nats url is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url, nats.Name("legistrack"))
	if err != nil {
		return nil, ferrors.NotifyError("failed to connect to NATS").WithCause(err).WithContext("url", url).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.NotifyError("failed to create JetStream context").WithCause(err).Build()
	}

	n := &NATS{conn: conn, js: js, subject: subject, logger: logger}
	if err := n.initKVBucket(ctx, bucket); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("NATS notifier initialized", logfields.URL(url), slog.String("subject", subject), slog.String("kv_bucket", bucket))
	return n, nil
}

func (n *NATS) initKVBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := n.js.KeyValue(ctx, bucket)
	if err == nil {
		n.kv = kv
		return nil
	}
	kv, err = n.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Latest legislative stage per bill",
		History:     5,
	})
	if err != nil {
		return ferrors.NotifyError("failed to create KV bucket").WithCause(err).WithContext("bucket", bucket).Build()
	}
	n.kv = kv
	n.logger.Info("Created KV bucket", slog.String("bucket", bucket))
	return nil
}

// Notify publishes every change and records the new stage.
func (n *NATS) Notify(ctx context.Context, batch Batch) error {
	var errs []error
	for _, c := range batch.Changes {
		data, err := json.Marshal(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = n.js.Publish(pubCtx, SubjectFor(n.subject, c), data)
		cancel()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		entry, _ := json.Marshal(StageEntry{
			Key:       c.Key,
			Stage:     string(c.ToStage),
			Status:    c.StatusText,
			ChangedAt: c.At,
			CycleID:   batch.CycleID,
		})
		putCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = n.kv.Put(putCtx, KVKey(c.Key), entry)
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return ferrors.NotifyError("failed to deliver changes to NATS").WithCause(err).
			WithContext("cycle_id", batch.CycleID).Build()
	}
	return nil
}

// LatestStage reads the stored stage for an identity key.
func (n *NATS) LatestStage(ctx context.Context, key string) (*StageEntry, error) {
	e, err := n.kv.Get(ctx, KVKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.NotifyError("failed to read KV entry").WithCause(err).Build()
	}
	var entry StageEntry
	if err := json.Unmarshal(e.Value(), &entry); err != nil {
		return nil, ferrors.NotifyError("failed to decode KV entry").WithCause(err).Build()
	}
	return &entry, nil
}

// Close closes the NATS connection.
func (n *NATS) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// SubjectFor returns the publish subject for a change.
func SubjectFor(base string, c Change) string {
	kind := string(c.Kind)
	if kind == "" {
		kind = "status"
	}
	return base + "." + kind
}

// KVKey maps an identity key onto the KV key alphabet.
func KVKey(key string) string {
	r := strings.NewReplacer("/", ".", " ", "_")
	return strings.Trim(r.Replace(key), ".")
}
