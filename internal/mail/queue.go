package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis list used as the outbound mail queue.
const QueueKey = "inventory:mail:queue"

// DefaultMaxQueueSize caps the queue while the SMTP server is down. 0 = unlimited.
const DefaultMaxQueueSize int64 = 1000

var ErrQueueFull = errors.New("mail queue full")

const (
	jobOTP              = "otp"
	jobLowStock         = "low_stock"
	jobPasswordReset    = "password_reset"
	jobUsernameRecovery = "username_recovery"
)

// EmailJob is the serialized payload pushed onto the queue.
type EmailJob struct {
	Type      string               `json:"type"`
	ToEmail   string               `json:"to_email"`
	Username  string               `json:"username,omitempty"`
	Secret    string               `json:"secret,omitempty"` // otp code or reset token
	ExpiresIn int64                `json:"expires_in,omitempty"`
	Items     []model.LowStockItem `json:"items,omitempty"`
}

// QueuedMailer enqueues jobs to Redis so request handlers never wait on SMTP.
// StartWorker drains the queue into the inner Mailer.
type QueuedMailer struct {
	inner        Mailer
	rdb          *redis.Client
	maxQueueSize int64
}

func NewQueuedMailer(inner Mailer, rdb *redis.Client, maxSize int64) *QueuedMailer {
	return &QueuedMailer{inner: inner, rdb: rdb, maxQueueSize: maxSize}
}

// enqueueScript pushes the job only while the queue is under the cap.
// KEYS[1] = queue key, ARGV[1] = max size (0 = skip check), ARGV[2] = payload.
var enqueueScript = redis.NewScript(`
local max = tonumber(ARGV[1])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
    return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

func (q *QueuedMailer) SendOTP(ctx context.Context, toEmail, username, code string, expiresIn time.Duration) error {
	return q.enqueue(ctx, EmailJob{Type: jobOTP, ToEmail: toEmail, Username: username, Secret: code, ExpiresIn: int64(expiresIn)})
}

func (q *QueuedMailer) SendLowStockAlert(ctx context.Context, toEmail string, items []model.LowStockItem) error {
	return q.enqueue(ctx, EmailJob{Type: jobLowStock, ToEmail: toEmail, Items: items})
}

func (q *QueuedMailer) SendPasswordReset(ctx context.Context, toEmail, token string, expiresIn time.Duration) error {
	return q.enqueue(ctx, EmailJob{Type: jobPasswordReset, ToEmail: toEmail, Secret: token, ExpiresIn: int64(expiresIn)})
}

func (q *QueuedMailer) SendUsernameRecovery(ctx context.Context, toEmail, username string) error {
	return q.enqueue(ctx, EmailJob{Type: jobUsernameRecovery, ToEmail: toEmail, Username: username})
}

func (q *QueuedMailer) enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling email job: %w", err)
	}
	ok, err := enqueueScript.Run(ctx, q.rdb, []string{QueueKey}, q.maxQueueSize, data).Int64()
	if err != nil {
		return fmt.Errorf("enqueuing email job: %w", err)
	}
	if ok == 0 {
		return ErrQueueFull
	}
	return nil
}

// StartWorker drains the mail queue until ctx is cancelled. Call in a goroutine.
func (q *QueuedMailer) StartWorker(ctx context.Context) {
	for {
		res, err := q.rdb.BLPop(ctx, 2*time.Second, QueueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			slog.Error("mail worker: queue pop failed", "err", err)
			time.Sleep(time.Second)
			continue
		}
		var job EmailJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			slog.Error("mail worker: bad job payload", "err", err)
			continue
		}
		q.dispatch(ctx, job)
	}
}

// dispatch calls the inner Mailer for job. Errors are logged and dropped.
func (q *QueuedMailer) dispatch(ctx context.Context, job EmailJob) {
	expiresIn := time.Duration(job.ExpiresIn)
	var err error
	switch job.Type {
	case jobOTP:
		err = q.inner.SendOTP(ctx, job.ToEmail, job.Username, job.Secret, expiresIn)
	case jobLowStock:
		err = q.inner.SendLowStockAlert(ctx, job.ToEmail, job.Items)
	case jobPasswordReset:
		err = q.inner.SendPasswordReset(ctx, job.ToEmail, job.Secret, expiresIn)
	case jobUsernameRecovery:
		err = q.inner.SendUsernameRecovery(ctx, job.ToEmail, job.Username)
	default:
		slog.Error("mail worker: unknown job type", "type", job.Type)
		return
	}
	if err != nil {
		slog.Error("mail worker: send failed", "type", job.Type, "to", job.ToEmail, "err", err)
	}
}
