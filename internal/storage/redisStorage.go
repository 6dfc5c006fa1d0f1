package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// updateScript swaps one set member for another atomically.
// Returns 0 when old is missing, -1 when updated already exists, 1 on success
var updateScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
	return 0
end
if ARGV[1] == ARGV[2] then
	return 1
end
if redis.call('SISMEMBER', KEYS[1], ARGV[2]) == 1 then
	return -1
end
redis.call('SREM', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[1], ARGV[2])
return 1
`)

// RedisStorage keeps the phonebook as a single Redis set.
// Each member is the JSON array of the four fields, so set membership is tuple equality
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage wraps a connected client. key names the set holding the entries
func NewRedisStorage(ctx context.Context, client *redis.Client, key string) (*RedisStorage, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStorage{client: client, key: key}, nil
}

// List returns every member decoded and ordered by surname
func (r *RedisStorage) List(ctx context.Context) ([]Entry, error) {
	return r.members(ctx, func(Entry) bool { return true })
}

// Exists reports whether the tuple is a member of the set
func (r *RedisStorage) Exists(ctx context.Context, e Entry) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, member(e)).Result()
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return ok, nil
}

// Insert adds the tuple. SADD reports 0 for an existing member, which becomes ErrDuplicate
func (r *RedisStorage) Insert(ctx context.Context, e Entry) error {
	added, err := r.client.SAdd(ctx, r.key, member(e)).Result()
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if added == 0 {
		return ErrDuplicate
	}
	return nil
}

// Delete removes the tuple and returns the number of members removed
func (r *RedisStorage) Delete(ctx context.Context, e Entry) (int64, error) {
	n, err := r.client.SRem(ctx, r.key, member(e)).Result()
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	return n, nil
}

// Update swaps the members inside a Lua script so no other command runs in between
func (r *RedisStorage) Update(ctx context.Context, old, updated Entry) error {
	res, err := updateScript.Run(ctx, r.client, []string{r.key}, member(old), member(updated)).Int()
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	switch res {
	case 0:
		return ErrNotFound
	case -1:
		return ErrDuplicate
	default:
		return nil
	}
}

// Search filters the members by surname fragment, ignoring ASCII case
func (r *RedisStorage) Search(ctx context.Context, fragment string) ([]Entry, error) {
	return r.members(ctx, func(e Entry) bool { return e.MatchSurname(fragment) })
}

// Close closes the client
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) members(ctx context.Context, keep func(Entry) bool) ([]Entry, error) {
	raw, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var entries []Entry
	for _, m := range raw {
		e, err := parseMember(m)
		if err != nil {
			return nil, err
		}
		if keep(e) {
			entries = append(entries, e)
		}
	}

	Sort(entries)
	return entries, nil
}

// member encodes the tuple canonically. json.Marshal of a fixed array is deterministic
func member(e Entry) string {
	b, _ := json.Marshal([4]string{e.Surname, e.Firstname, e.Number, e.Address}) //nolint:errcheck
	return string(b)
}

func parseMember(m string) (Entry, error) {
	var fields [4]string
	if err := json.Unmarshal([]byte(m), &fields); err != nil {
		return Entry{}, fmt.Errorf("decode member %q: %w", m, err)
	}
	return Entry{Surname: fields[0], Firstname: fields[1], Number: fields[2], Address: fields[3]}, nil
}
