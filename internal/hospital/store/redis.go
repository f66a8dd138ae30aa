package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"scanbo/internal/hospital/models"
	id "scanbo/pkg/domain"
	"scanbo/pkg/platform/sentinel"
	txcontext "scanbo/pkg/platform/tx"
)

const keyPrefix = "hospital:"

// RedisStore keeps one JSON value per account. SETNX makes the insert
// first-writer-wins across every process sharing the Redis.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

type redisHospital struct {
	Name         []byte    `json:"name"`
	Location     []byte    `json:"location"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Key returns the storage key for accountID: the prefix, a 128-bit BLAKE2b
// digest of the id, and the id itself, both hex encoded.
func Key(accountID id.AccountID) string {
	raw := []byte(accountID)
	h := newKeyHash()
	h.Write(raw)
	return keyPrefix + hex.EncodeToString(h.Sum(nil)) + hex.EncodeToString(raw)
}

const keyDigestSize = 16

// newKeyHash returns an unkeyed 128-bit BLAKE2b hash. blake2b.New only
// fails for an out of range size or an oversized key, neither of which
// applies here.
func newKeyHash() hash.Hash {
	h, err := blake2b.New(keyDigestSize, nil)
	if err != nil {
		panic(fmt.Sprintf("blake2b-%d: %v", keyDigestSize*8, err))
	}
	return h
}

func (s *RedisStore) Contains(ctx context.Context, accountID id.AccountID) (bool, error) {
	n, err := s.client.Exists(ctx, Key(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("check hospital: %w: %w", sentinel.ErrUnavailable, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Insert(ctx context.Context, hospital *models.Hospital) error {
	payload, err := json.Marshal(redisHospital{
		Name:         hospital.Name.Bytes(),
		Location:     hospital.Location.Bytes(),
		RegisteredAt: hospital.RegisteredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode hospital: %w", err)
	}

	key := Key(hospital.AccountID)
	ok, err := s.client.SetNX(ctx, key, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("insert hospital: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}

	txcontext.OnRollback(ctx, func(ctx context.Context) error {
		return s.client.Del(ctx, key).Err()
	})
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Hospital, error) {
	payload, err := s.client.Get(ctx, Key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find hospital: %w: %w", sentinel.ErrUnavailable, err)
	}
	var stored redisHospital
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode hospital: %w", err)
	}
	return &models.Hospital{
		AccountID:    accountID,
		Name:         models.RestoreBoundedBytes(stored.Name),
		Location:     models.RestoreBoundedBytes(stored.Location),
		RegisteredAt: stored.RegisteredAt,
	}, nil
}
