package service

import (
	"hash/fnv"
	"sync"
)

const defaultLockShards = 32

// keyedMutex serializes operations per donation without allocating a lock per
// entity: donation ids map deterministically onto a fixed set of mutex shards.
// Two operations on the same donation never interleave; operations on
// different donations almost always proceed concurrently.
type keyedMutex struct {
	shards []sync.Mutex
}

func newKeyedMutex(numShards int) *keyedMutex {
	if numShards <= 0 {
		numShards = defaultLockShards
	}
	return &keyedMutex{shards: make([]sync.Mutex, numShards)}
}

// lock acquires the shard for key and returns its unlock function.
func (m *keyedMutex) lock(key string) func() {
	shard := &m.shards[m.shardIndex(key)]
	shard.Lock()
	return shard.Unlock
}

func (m *keyedMutex) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(m.shards)
}
