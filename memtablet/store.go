// Package memtablet is an in-memory tablet that serves traverse calls.
package memtablet

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aita/kvtraverse/db"
	"github.com/aita/kvtraverse/tablet"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Response codes, as sent in TraverseResponse.Code.
const (
	CodeOK           int32 = 0
	CodeNoTable      int32 = 100
	CodeInvalidLimit int32 = 101
	CodeNoIndex      int32 = 108
)

var (
	ErrTableExists = errors.New("memtablet: table already exists")
	ErrNoTable     = errors.New("memtablet: table is not exist")
	ErrNoPartition = errors.New("memtablet: partition is not exist")
	ErrNoIndex     = errors.New("memtablet: idx name not found")
)

type entry struct {
	key   string
	ts    uint64
	value []byte
}

// less orders entries by key ascending, then by time descending.
func (e entry) less(key string, ts uint64) bool {
	if e.key != key {
		return e.key < key
	}
	return e.ts > ts
}

type table struct {
	indexes []string
	// index name -> pid -> entries
	data map[string]map[uint32][]entry
}

func (t *table) partition(index string, pid uint32) ([]entry, error) {
	if index == "" {
		index = t.indexes[0]
	}
	parts, ok := t.data[index]
	if !ok {
		return nil, pkgerrors.Wrap(ErrNoIndex, index)
	}
	entries, ok := parts[pid]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrNoPartition, "pid %d", pid)
	}
	return entries, nil
}

// Store holds tables in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tables  map[uint32]*table
	log     *logrus.Entry
	metrics *metrics
}

type Option func(*Store)

var _ tablet.TabletServer = (*Store)(nil)

func NewStore(log *logrus.Entry, opts ...Option) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Store{
		tables: map[uint32]*table{},
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateTable adds a table. The first index is used when a request names
// none; a table always has at least the "default" index.
func (s *Store) CreateTable(tid uint32, partitions []uint32, indexes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[tid]; ok {
		return pkgerrors.Wrapf(ErrTableExists, "tid %d", tid)
	}
	if len(indexes) == 0 {
		indexes = []string{"default"}
	}
	t := &table{
		indexes: indexes,
		data:    map[string]map[uint32][]entry{},
	}
	for _, idx := range indexes {
		parts := map[uint32][]entry{}
		for _, pid := range partitions {
			parts[pid] = nil
		}
		t.data[idx] = parts
	}
	s.tables[tid] = t
	return nil
}

// Put stores one version of key. An existing version with the same time is
// replaced.
func (s *Store) Put(tid, pid uint32, index, key string, ts uint64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tid]
	if !ok {
		return pkgerrors.Wrapf(ErrNoTable, "tid %d", tid)
	}
	if index == "" {
		index = t.indexes[0]
	}
	entries, err := t.partition(index, pid)
	if err != nil {
		return err
	}
	i := sort.Search(len(entries), func(i int) bool {
		return !entries[i].less(key, ts)
	})
	e := entry{key: key, ts: ts, value: append([]byte(nil), value...)}
	if i < len(entries) && entries[i].key == key && entries[i].ts == ts {
		entries[i] = e
		return nil
	}
	entries = append(entries, entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	t.data[index][pid] = entries
	return nil
}

// Traverse returns the page of a partition that follows the resume token in
// req, holding at most req.Limit records.
func (s *Store) Traverse(ctx context.Context, req *tablet.TraverseRequest) (*tablet.TraverseResponse, error) {
	res := s.traverse(req)
	s.metrics.observe(res)
	return res, nil
}

func (s *Store) traverse(req *tablet.TraverseRequest) *tablet.TraverseResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.log.WithFields(logrus.Fields{
		"tid": req.Tid,
		"pid": req.Pid,
	})
	if req.Limit == 0 {
		return &tablet.TraverseResponse{Code: CodeInvalidLimit, Msg: "limit must be positive"}
	}
	t, ok := s.tables[req.Tid]
	if !ok {
		log.Debug("traverse on missing table")
		return &tablet.TraverseResponse{Code: CodeNoTable, Msg: "table is not exist"}
	}
	entries, err := t.partition(req.IdxName, req.Pid)
	switch {
	case errors.Is(err, ErrNoIndex):
		return &tablet.TraverseResponse{Code: CodeNoIndex, Msg: "idx name not found"}
	case err != nil:
		return &tablet.TraverseResponse{Code: CodeNoTable, Msg: "table is not exist"}
	}

	start := 0
	last := ""
	if req.Pk != "" {
		start = sort.Search(len(entries), func(i int) bool {
			e := entries[i]
			return e.key > req.Pk || (e.key == req.Pk && e.ts < req.Ts)
		})
		last = req.Pk
	}
	w := db.NewPageWriter(nil)
	for _, e := range entries[start:] {
		if w.Count() >= req.Limit {
			break
		}
		if req.EnableRemoveDuplicatedRecord && e.key == last {
			continue
		}
		w.Append(e.key, e.ts, e.value)
		last = e.key
	}
	log.WithFields(logrus.Fields{
		"count": w.Count(),
		"bytes": w.Len(),
	}).Debug("traverse")
	return &tablet.TraverseResponse{Pairs: w.Bytes(), Count: w.Count()}
}
