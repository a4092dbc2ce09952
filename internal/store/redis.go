package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
)

// RedisStore is an AttemptStore backed by the lab's shared Redis, using the
// same keyspace the backend's autosave pipeline reads. In lab deployments
// this makes the client's write-through visible to proctoring tooling and
// lets a student resume on a different machine.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis at rawURL and validates the connection.
func NewRedisStore(ctx context.Context, rawURL string, log zerolog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("attempt store connected to Redis")

	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) answersKey(key AttemptKey) string {
	return key.String() + ":answers"
}

func (r *RedisStore) startKey(key AttemptKey) string {
	return key.String() + ":started_at"
}

func (r *RedisStore) SaveStartedAt(ctx context.Context, key AttemptKey, startedAt time.Time) error {
	return r.rdb.Set(ctx, r.startKey(key), startedAt.Unix(), 0).Err()
}

func (r *RedisStore) SaveAnswer(ctx context.Context, key AttemptKey, questionID uuid.UUID, answer model.Answer) error {
	raw, err := encodeAnswer(answer)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, r.answersKey(key), questionID.String(), string(raw)).Err()
}

func (r *RedisStore) Load(ctx context.Context, key AttemptKey) (*Attempt, error) {
	startRaw, err := r.rdb.Get(ctx, r.startKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get start time: %w", err)
	}

	startUnix, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start time in store: %w", err)
	}

	fields, err := r.rdb.HGetAll(ctx, r.answersKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}

	attempt := &Attempt{
		StartedAt: time.Unix(startUnix, 0),
		Answers:   make(map[uuid.UUID]model.Answer, len(fields)),
	}
	for qidRaw, answerRaw := range fields {
		qid, err := uuid.Parse(qidRaw)
		if err != nil {
			continue
		}
		answer, err := decodeAnswer([]byte(answerRaw))
		if err != nil {
			continue
		}
		attempt.Answers[qid] = answer
	}
	return attempt, nil
}

func (r *RedisStore) Clear(ctx context.Context, key AttemptKey) error {
	return r.rdb.Del(ctx, r.answersKey(key), r.startKey(key)).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
