package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

const (
	// DefaultTTL is used when no TTL is configured.
	DefaultTTL = 24 * time.Hour

	// maxHistory bounds the attempts kept per job.
	maxHistory = 20

	keyPrefix = "classifier:status:"
)

// ErrNilClient is returned when the store is created without a client.
var ErrNilClient = errors.New("redis client cannot be nil")

// StatusStore stores job statuses in Redis. It is a worker.Reporter.
type StatusStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ worker.Reporter = (*StatusStore)(nil)

// Connect parses url, connects and pings the server.
func Connect(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*StatusStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.MaxRetries = 5
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 2 * time.Second
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStatusStore(client, ttl, logger)
}

// NewStatusStore wraps an existing client. A zero ttl applies DefaultTTL.
func NewStatusStore(client goredis.UniversalClient, ttl time.Duration, logger *slog.Logger) (*StatusStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_status_store"),
	}, nil
}

func latestKey(jobID string) string {
	return keyPrefix + jobID
}

func historyKey(jobID string) string {
	return keyPrefix + jobID + ":history"
}

// Report implements worker.Reporter. Statuses without a job id cannot be
// polled for and are skipped.
func (s *StatusStore) Report(ctx context.Context, status domain.StatusMessage) error {
	if status.JobID == "" {
		s.logger.DebugContext(ctx, "skipping status without job id")
		return nil
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status for job %s: %w", status.JobID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, latestKey(status.JobID), data, s.ttl)
		pipe.RPush(ctx, historyKey(status.JobID), data)
		pipe.LTrim(ctx, historyKey(status.JobID), -maxHistory, -1)
		pipe.Expire(ctx, historyKey(status.JobID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store status for job %s: %w", status.JobID, err)
	}
	return nil
}

// Get returns the latest status recorded for jobID, or
// domain.ErrStatusNotFound.
func (s *StatusStore) Get(ctx context.Context, jobID string) (domain.StatusMessage, error) {
	data, err := s.client.Get(ctx, latestKey(jobID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.StatusMessage{}, domain.ErrStatusNotFound
	}
	if err != nil {
		return domain.StatusMessage{}, fmt.Errorf("failed to get status for job %s: %w", jobID, err)
	}

	var status domain.StatusMessage
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.StatusMessage{}, fmt.Errorf("corrupt status for job %s: %w", jobID, err)
	}
	return status, nil
}

// History returns the recorded attempts for jobID, oldest first.
func (s *StatusStore) History(ctx context.Context, jobID string) ([]domain.StatusMessage, error) {
	raw, err := s.client.LRange(ctx, historyKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history for job %s: %w", jobID, err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrStatusNotFound
	}

	history := make([]domain.StatusMessage, 0, len(raw))
	for _, item := range raw {
		var status domain.StatusMessage
		if err := json.Unmarshal([]byte(item), &status); err != nil {
			s.logger.WarnContext(ctx, "skipping corrupt history entry",
				"job_id", jobID,
				"error", err)
			continue
		}
		history = append(history, status)
	}
	return history, nil
}

// Ping checks the connection.
func (s *StatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *StatusStore) Close() error {
	return s.client.Close()
}
