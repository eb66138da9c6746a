package calls

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
)

const (
	DefaultKey = "recent_calls"

	maxTxRetries = 5
)

var errRecordMissing = stderrors.New("record missing")

// RedisStore keeps the whole list as one JSON array under a single key,
// rewritten on every change inside a WATCH transaction.
type RedisStore struct {
	client *redis.Client
	key    string
	max    int
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, key string, log logger.Logger) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{
		client: client,
		key:    key,
		max:    MaxRecent,
		logger: logger.Component(log, "calls-store"),
	}
}

func (s *RedisStore) decode(raw []byte) ([]Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []Record
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *RedisStore) load(ctx context.Context, get func(ctx context.Context, key string) *redis.StringCmd) ([]Record, error) {
	raw, err := get(ctx, s.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list, err := s.decode(raw)
	if err != nil {
		// A corrupt value reads as an empty list and is overwritten on the next write.
		s.logger.Warn("discarding unreadable recent calls", map[string]interface{}{"key": s.key, "error": err})
		return nil, nil
	}
	return list, nil
}

// mutate applies fn to the stored list atomically, retrying when another
// writer changed the key in between.
func (s *RedisStore) mutate(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	txf := func(tx *redis.Tx) error {
		list, err := s.load(ctx, tx.Get)
		if err != nil {
			return err
		}
		next, err := fn(list)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("recent calls update kept conflicting after %d attempts", maxTxRetries)
}

func (s *RedisStore) Add(ctx context.Context, rec Record) error {
	err := s.mutate(ctx, func(list []Record) ([]Record, error) {
		return prepend(list, rec, s.max), nil
	})
	if err != nil {
		return errors.NewCacheError(err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Record)) (Record, error) {
	var updated Record
	err := s.mutate(ctx, func(list []Record) ([]Record, error) {
		i := find(list, id)
		if i < 0 {
			return nil, errRecordMissing
		}
		fn(&list[i])
		updated = list[i]
		return list, nil
	})
	if stderrors.Is(err, errRecordMissing) {
		return Record{}, errors.NewCallNotFoundError(id)
	}
	if err != nil {
		return Record{}, errors.NewCacheError(err)
	}
	return updated, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	if i := find(list, id); i >= 0 {
		return list[i], nil
	}
	return Record{}, errors.NewCallNotFoundError(id)
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	list, err := s.load(ctx, s.client.Get)
	if err != nil {
		return nil, errors.NewCacheError(err)
	}
	if list == nil {
		list = []Record{}
	}
	return list, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.NewCacheError(err)
	}
	return nil
}
