package db

import (
	"context"

	"github.com/aita/kvtraverse/tablet"
)

// TableIdentity is what a cursor needs to know about a table. It does not
// change for the lifetime of a cursor.
type TableIdentity struct {
	Name       string
	Tid        uint32
	Partitions []uint32
}

type ReadStrategy int

const (
	ReadLeader ReadStrategy = iota
	ReadRandom
	ReadRoundRobin
)

func (s ReadStrategy) String() string {
	switch s {
	case ReadLeader:
		return "leader"
	case ReadRandom:
		return "random"
	case ReadRoundRobin:
		return "roundrobin"
	}
	return "unknown"
}

// ParseReadStrategy is the inverse of ReadStrategy.String.
func ParseReadStrategy(s string) (ReadStrategy, error) {
	switch s {
	case "", "leader":
		return ReadLeader, nil
	case "random":
		return ReadRandom, nil
	case "roundrobin":
		return ReadRoundRobin, nil
	}
	return ReadLeader, ErrInvalidConfig
}

// Tablet serves traverse calls for the partitions it hosts.
type Tablet interface {
	Traverse(ctx context.Context, req *tablet.TraverseRequest) (*tablet.TraverseResponse, error)
}

// Resolver maps table names to identities and partitions to tablets.
// Implementations may be shared by many cursors.
type Resolver interface {
	Resolve(ctx context.Context, table string) (TableIdentity, error)
	Route(ctx context.Context, tid, pid uint32, strategy ReadStrategy) (Tablet, error)
}
