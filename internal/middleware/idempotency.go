package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/metrics"
	apperrors "github.com/myflix/movies-api/pkg/errors"
)

// IdempotencyMiddleware replays the cached response when a state-changing
// request is retried with the same Idempotency-Key. The header is optional —
// the original myFlix clients never send it — but retrying clients that do
// get exactly-once registration and favorite updates.
type IdempotencyMiddleware struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	ttl         time.Duration
}

type idempotencyRecord struct {
	StatusCode int       `json:"status_code"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, logger *logrus.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		redisClient: redisClient,
		logger:      logger,
		ttl:         5 * time.Minute,
	}
}

func (i *IdempotencyMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodDelete {
			return c.Next()
		}

		idempotencyKey := c.Get("Idempotency-Key")
		if idempotencyKey == "" {
			return c.Next()
		}

		if _, err := uuid.Parse(idempotencyKey); err != nil {
			appErr := apperrors.NewAppError(apperrors.CodeBadRequest, "Idempotency-Key must be a valid UUID", nil)
			return respondError(c, appErr)
		}

		fingerprint := i.generateFingerprint(c)
		redisKey := fmt.Sprintf("idempotency:%s", idempotencyKey)

		ctx := context.Background()
		record, storedFingerprint, err := i.getRecord(ctx, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			i.logger.WithError(err).Error("Failed to get idempotency record")
			// Continue with the request rather than failing it
		}

		if record != nil {
			if storedFingerprint != "" && storedFingerprint != fingerprint {
				appErr := apperrors.NewAppError(apperrors.CodeBadRequest, "Request differs from original request with same Idempotency-Key", nil)
				return respondError(c, appErr)
			}

			metrics.RecordIdempotencyHit("hit")
			c.Set("X-Idempotency-Replay", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(record.StatusCode).SendString(record.Body)
		}

		metrics.RecordIdempotencyHit("miss")

		if err := c.Next(); err != nil {
			return err
		}

		// Cache only successful outcomes; failed requests may be retried fresh
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			i.storeRecord(ctx, redisKey, fingerprint, idempotencyRecord{
				StatusCode: statusCode,
				Body:       string(c.Response().Body()),
				CreatedAt:  time.Now().UTC(),
			})
		}

		return nil
	}
}

func (i *IdempotencyMiddleware) generateFingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte(c.Path()))
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}

func (i *IdempotencyMiddleware) getRecord(ctx context.Context, redisKey string) (*idempotencyRecord, string, error) {
	data, err := i.redisClient.Get(ctx, redisKey).Result()
	if err != nil {
		return nil, "", err
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, "", fmt.Errorf("unmarshal idempotency record: %w", err)
	}

	fingerprint, err := i.redisClient.Get(ctx, redisKey+":fingerprint").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return &record, "", err
	}

	return &record, fingerprint, nil
}

func (i *IdempotencyMiddleware) storeRecord(ctx context.Context, redisKey, fingerprint string, record idempotencyRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		i.logger.WithError(err).Error("Failed to marshal idempotency record")
		return
	}

	pipe := i.redisClient.Pipeline()
	pipe.Set(ctx, redisKey, data, i.ttl)
	pipe.Set(ctx, redisKey+":fingerprint", fingerprint, i.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		i.logger.WithError(err).Error("Failed to store idempotency record")
	}
}
