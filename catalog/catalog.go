// Package catalog resolves tables and routes partitions from a static
// catalog kept in a properties file:
//
//	table.<name>.tid = 1
//	table.<name>.partitions = 0,1,2
//	partition.<tid>.<pid>.leader = host:port
//	partition.<tid>.<pid>.followers = host:port,host:port
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/aita/kvtraverse/db"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var ErrNoEndpoint = errors.New("catalog: no endpoint for partition")

// Partition lists the tablets serving one partition.
type Partition struct {
	Leader    string
	Followers []string

	next *atomic.Uint32
}

func (p *Partition) replicas() []string {
	return append([]string{p.Leader}, p.Followers...)
}

func (p *Partition) pick(strategy db.ReadStrategy, intn func(int) int) string {
	switch strategy {
	case db.ReadRandom:
		r := p.replicas()
		return r[intn(len(r))]
	case db.ReadRoundRobin:
		r := p.replicas()
		return r[int(p.next.Inc()-1)%len(r)]
	}
	return p.Leader
}

type partitionKey struct {
	tid, pid uint32
}

// Catalog implements db.Resolver. It is safe for concurrent use.
type Catalog struct {
	tables     map[string]db.TableIdentity
	partitions map[partitionKey]*Partition
	conns      *Connections
	intn       func(int) int
}

var _ db.Resolver = (*Catalog)(nil)

func Load(path string, conns *Connections) (*Catalog, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: load %s", path)
	}
	return Parse(p, conns)
}

func Parse(p *properties.Properties, conns *Connections) (*Catalog, error) {
	c := &Catalog{
		tables:     map[string]db.TableIdentity{},
		partitions: map[partitionKey]*Partition{},
		conns:      conns,
		intn:       rand.Intn,
	}
	for _, key := range p.Keys() {
		if !strings.HasPrefix(key, "table.") || !strings.HasSuffix(key, ".tid") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "table."), ".tid")
		table, err := parseTable(p, name)
		if err != nil {
			return nil, err
		}
		for _, pid := range table.Partitions {
			part, err := parsePartition(p, table.Tid, pid)
			if err != nil {
				return nil, errors.WithMessagef(err, "table %s", name)
			}
			c.partitions[partitionKey{table.Tid, pid}] = part
		}
		c.tables[name] = table
	}
	return c, nil
}

func parseTable(p *properties.Properties, name string) (db.TableIdentity, error) {
	prefix := "table." + name
	tid, err := strconv.ParseUint(p.GetString(prefix+".tid", ""), 10, 32)
	if err != nil {
		return db.TableIdentity{}, errors.Wrapf(err, "catalog: %s.tid", prefix)
	}
	pids, err := parseUints(p.GetString(prefix+".partitions", ""))
	if err != nil {
		return db.TableIdentity{}, errors.Wrapf(err, "catalog: %s.partitions", prefix)
	}
	return db.TableIdentity{Name: name, Tid: uint32(tid), Partitions: pids}, nil
}

func parsePartition(p *properties.Properties, tid, pid uint32) (*Partition, error) {
	prefix := fmt.Sprintf("partition.%d.%d", tid, pid)
	leader := strings.TrimSpace(p.GetString(prefix+".leader", ""))
	if leader == "" {
		return nil, errors.Wrapf(ErrNoEndpoint, "%s.leader", prefix)
	}
	part := &Partition{Leader: leader, next: atomic.NewUint32(0)}
	for _, f := range strings.Split(p.GetString(prefix+".followers", ""), ",") {
		if f = strings.TrimSpace(f); f != "" {
			part.Followers = append(part.Followers, f)
		}
	}
	return part, nil
}

func parseUints(s string) ([]uint32, error) {
	var out []uint32
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func (c *Catalog) Resolve(ctx context.Context, table string) (db.TableIdentity, error) {
	t, ok := c.tables[table]
	if !ok {
		return db.TableIdentity{}, errors.Wrapf(db.ErrNoTable, "table %s", table)
	}
	t.Partitions = append([]uint32(nil), t.Partitions...)
	return t, nil
}

func (c *Catalog) Route(ctx context.Context, tid, pid uint32, strategy db.ReadStrategy) (db.Tablet, error) {
	part, ok := c.partitions[partitionKey{tid, pid}]
	if !ok {
		return nil, errors.Wrapf(ErrNoEndpoint, "tid %d pid %d", tid, pid)
	}
	return c.conns.Get(part.pick(strategy, c.intn))
}

// Partition returns the replicas of a partition.
func (c *Catalog) Partition(tid, pid uint32) (*Partition, bool) {
	part, ok := c.partitions[partitionKey{tid, pid}]
	return part, ok
}

// Tables returns the names of all tables, sorted.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
