package db

import (
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestConfigValidate(t *testing.T) {
	assert.NilError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ReadStrategy = ReadStrategy(9)
	assert.Assert(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.RPCTimeout = -1
	assert.Assert(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}

func TestParseReadStrategy(t *testing.T) {
	for _, s := range []ReadStrategy{ReadLeader, ReadRandom, ReadRoundRobin} {
		got, err := ParseReadStrategy(s.String())
		assert.NilError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseReadStrategy("nearest")
	assert.Equal(t, ErrInvalidConfig, err)
}
