package db

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTraverseLimit = 100
	DefaultRPCTimeout    = 3 * time.Second
)

type Config struct {
	// TraverseLimit is the page size asked from tablets. A page holding
	// fewer records ends its partition.
	TraverseLimit uint32
	// RemoveDuplicateByTime asks tablets to keep one version per key.
	RemoveDuplicateByTime bool
	ReadStrategy          ReadStrategy
	RPCTimeout            time.Duration
}

func DefaultConfig() Config {
	return Config{
		TraverseLimit: DefaultTraverseLimit,
		ReadStrategy:  ReadLeader,
		RPCTimeout:    DefaultRPCTimeout,
	}
}

func (c Config) Validate() error {
	if c.TraverseLimit == 0 {
		return errors.Wrap(ErrInvalidConfig, "traverse limit must be positive")
	}
	if c.RPCTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "rpc timeout must not be negative")
	}
	switch c.ReadStrategy {
	case ReadLeader, ReadRandom, ReadRoundRobin:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown read strategy %d", c.ReadStrategy)
	}
	return nil
}
