package cmd

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aita/kvtraverse/db"
	"github.com/aita/kvtraverse/memtablet"
	"github.com/aita/kvtraverse/tablet"
	"github.com/spf13/viper"
	"gotest.tools/assert"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadData(t *testing.T) {
	catalogPath := writeFile(t, "catalog.properties", `
table.orders.tid = 3
table.orders.partitions = 0,1
partition.3.0.leader = 127.0.0.1:9527
partition.3.1.leader = 127.0.0.1:9527
`)
	dataPath := writeFile(t, "data.properties", `
3.0.100.order.1 = first
3.0.90.order.1 = older
3.1.5.order.2 = second
`)
	store := memtablet.NewStore(nil)
	assert.NilError(t, createTables(store, catalogPath))
	assert.NilError(t, loadData(store, dataPath))

	res, err := store.Traverse(context.Background(), &tablet.TraverseRequest{Tid: 3, Pid: 0, Limit: 10})
	assert.NilError(t, err)
	assert.Equal(t, uint32(2), res.Count)
	want := db.AppendFrame(nil, "order.1", 100, []byte("first"))
	want = db.AppendFrame(want, "order.1", 90, []byte("older"))
	assert.DeepEqual(t, want, res.Pairs)

	bad := writeFile(t, "bad.properties", "3.0.x.key = v\n")
	assert.ErrorContains(t, loadData(store, bad), "bad record key")
	short := writeFile(t, "short.properties", "3.0 = v\n")
	assert.ErrorContains(t, loadData(store, short), "bad record key")
}

func TestClientConfig(t *testing.T) {
	defer viper.Reset()
	viper.Set("traverse.limit", 7)
	viper.Set("traverse.dedup", true)
	viper.Set("rpc.timeout", "2s")
	viper.Set("read.strategy", "roundrobin")
	cfg, err := clientConfig()
	assert.NilError(t, err)
	assert.DeepEqual(t, db.Config{
		TraverseLimit:         7,
		RemoveDuplicateByTime: true,
		ReadStrategy:          db.ReadRoundRobin,
		RPCTimeout:            2 * time.Second,
	}, cfg)

	viper.Set("read.strategy", "nearest")
	_, err = clientConfig()
	assert.Assert(t, err != nil)

	viper.Set("read.strategy", "leader")
	viper.Set("traverse.limit", 0)
	_, err = clientConfig()
	assert.Assert(t, strings.Contains(err.Error(), "traverse limit"))

	viper.Set("traverse.limit", -1)
	_, err = clientConfig()
	assert.Assert(t, errors.Is(err, db.ErrInvalidConfig))
	viper.Set("traverse.limit", int64(math.MaxUint32)+1)
	_, err = clientConfig()
	assert.Assert(t, errors.Is(err, db.ErrInvalidConfig))
}

func TestUintSetting(t *testing.T) {
	defer viper.Reset()
	viper.Set("rpc.retries", 3)
	n, err := uintSetting("rpc.retries", math.MaxInt32)
	assert.NilError(t, err)
	assert.Equal(t, uint64(3), n)

	viper.Set("rpc.retries", -1)
	_, err = uintSetting("rpc.retries", math.MaxInt32)
	assert.Assert(t, errors.Is(err, db.ErrInvalidConfig))
	assert.Assert(t, strings.Contains(err.Error(), "rpc.retries -1"))
}
