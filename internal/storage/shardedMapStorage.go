package storage

import (
	"context"
	"errors"
	"hash/fnv"
	"math/bits"
	"sync"
)

// ShardedMapStorage is a thread-safe in-memory phonebook,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint32
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errors.New("requested shards must be a power of 2")
	}

	if requestedShards > 64 {
		return nil, errors.New("requested shards must be less or equal than 64")
	}

	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint32(requestedShards - 1),
	}

	var i uint
	for i = 0; i < requestedShards; i++ {
		s.shards[i] = NewMapStorage()
	}

	return s, nil
}

// getShardIndex returns index of shard by the entry tuple
func (s *ShardedMapStorage) getShardIndex(e Entry) uint32 {
	hash := fnv.New32a()
	for _, field := range [...]string{e.Surname, e.Firstname, e.Number, e.Address} {
		hash.Write([]byte(field)) //nolint:errcheck
		hash.Write([]byte{0})     //nolint:errcheck
	}

	return hash.Sum32() & s.shardMask
}

func (s *ShardedMapStorage) shard(e Entry) *MapStorage {
	return s.shards[s.getShardIndex(e)]
}

// List merges every shard and orders the result by surname
func (s *ShardedMapStorage) List(ctx context.Context) ([]Entry, error) {
	return s.gather(func(shard *MapStorage) ([]Entry, error) { return shard.List(ctx) })
}

// Exists reports whether an identical entry is stored
func (s *ShardedMapStorage) Exists(ctx context.Context, e Entry) (bool, error) {
	return s.shard(e).Exists(ctx, e)
}

// Insert adds the entry to its shard. Returns ErrDuplicate if it is already stored
func (s *ShardedMapStorage) Insert(ctx context.Context, e Entry) error {
	return s.shard(e).Insert(ctx, e)
}

// Delete removes the entry from its shard
func (s *ShardedMapStorage) Delete(ctx context.Context, e Entry) (int64, error) {
	return s.shard(e).Delete(ctx, e)
}

// Update moves old to updated. When the tuples live in different shards
// both are locked in index order so concurrent updates cannot deadlock
func (s *ShardedMapStorage) Update(ctx context.Context, old, updated Entry) error {
	fromIdx, toIdx := s.getShardIndex(old), s.getShardIndex(updated)
	if fromIdx == toIdx {
		return s.shards[fromIdx].Update(ctx, old, updated)
	}

	from, to := s.shards[fromIdx], s.shards[toIdx]
	first, second := from, to
	if toIdx < fromIdx {
		first, second = to, from
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	return swap(from, to, old, updated)
}

// Search queries every shard in parallel and orders the merged result by surname
func (s *ShardedMapStorage) Search(ctx context.Context, fragment string) ([]Entry, error) {
	return s.gather(func(shard *MapStorage) ([]Entry, error) { return shard.Search(ctx, fragment) })
}

// Close is a no-op, kept to satisfy Storage
func (s *ShardedMapStorage) Close() error {
	return nil
}

// gather runs fn on every shard concurrently and merges the results.
// The first shard error wins
func (s *ShardedMapStorage) gather(fn func(*MapStorage) ([]Entry, error)) ([]Entry, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex // protects merged and firstErr
	var merged []Entry
	var firstErr error

	wg.Add(len(s.shards))

	for _, shard := range s.shards {
		go func(m *MapStorage) {
			defer wg.Done()
			part, err := fn(m)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			merged = append(merged, part...)
		}(shard)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	Sort(merged)
	return merged, nil
}
