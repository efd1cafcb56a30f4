package store

import (
	"hash/fnv"
	"sync"
)

// KeyLock serializes mutations per entity key. Every state-changing
// operation on a file or transfer takes the matching lock for the
// duration of its read-validate-write cycle, so at most one mutator
// touches an entity at a time.
type KeyLock struct {
	shards []sync.Mutex
}

func NewKeyLock(shards int) *KeyLock {
	if shards <= 0 {
		shards = 64
	}
	return &KeyLock{shards: make([]sync.Mutex, shards)}
}

func (l *KeyLock) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}

func (l *KeyLock) Lock(key string) {
	l.shard(key).Lock()
}

func (l *KeyLock) Unlock(key string) {
	l.shard(key).Unlock()
}
