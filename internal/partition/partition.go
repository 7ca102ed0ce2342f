// Package partition splits the key space across a fleet of cooperating
// executors. Assignment is a pure function of the key, so independent
// processes agree on ownership without coordination.
package partition

import "github.com/cespare/xxhash/v2"

// Hasher turns a key into a stable 64-bit value. The algorithm is pluggable
// but must stay fixed for the lifetime of a fleet: changing it reshuffles
// ownership of every key.
type Hasher interface {
	Sum64(key string) uint64
}

// XXHash is the default Hasher.
type XXHash struct{}

func (XXHash) Sum64(key string) uint64 { return xxhash.Sum64String(key) }

type Partitioner struct {
	hasher Hasher
	total  int
	self   int
}

// New builds a partitioner for executor self out of total. A total below 1 is
// treated as a single-executor fleet.
func New(h Hasher, total, self int) *Partitioner {
	if h == nil {
		h = XXHash{}
	}
	if total < 1 {
		total = 1
	}
	return &Partitioner{hasher: h, total: total, self: self}
}

// Assign returns the partition a key hashes into.
func (p *Partitioner) Assign(key string) int {
	return int(p.hasher.Sum64(key) % uint64(p.total))
}

// IsLocal reports whether this executor owns the key.
func (p *Partitioner) IsLocal(key string) bool {
	return p.Assign(key) == p.self
}
