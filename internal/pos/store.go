package pos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ringmotos/ringpos/internal/shared"
)

const defaultLockTTL = 60 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps the active sale of each (session, terminal) pair in Redis.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewStore builds a Store. ttl bounds how long an untouched sale survives.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, lockTTL: defaultLockTTL}
}

// Load returns the saved sale, nil when the tab has none.
func (s *Store) Load(ctx context.Context, sessionID, terminal string) (*Sale, error) {
	payload, err := s.client.Get(ctx, shared.SaleStateKey(sessionID, terminal)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sale Sale
	if err := json.Unmarshal(payload, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Save persists sale, deleting the key when sale is nil.
func (s *Store) Save(ctx context.Context, sessionID, terminal string, sale *Sale) error {
	key := shared.SaleStateKey(sessionID, terminal)
	if sale == nil {
		return s.client.Del(ctx, key).Err()
	}
	payload, err := json.Marshal(sale)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

// Lock takes the in-flight lock for a tab. It fails with ErrBusy when another
// request holds it. The returned func releases only this holder's lock.
func (s *Store) Lock(ctx context.Context, sessionID, terminal string) (func(), error) {
	key := shared.SaleLockKey(sessionID, terminal)
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, s.client, []string{key}, token).Err()
	}, nil
}
