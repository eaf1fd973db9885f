package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aita/kvtraverse/tablet"
	"gotest.tools/assert"
)

type deadlineTablet struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineTablet) Traverse(ctx context.Context, req *tablet.TraverseRequest) (*tablet.TraverseResponse, error) {
	d.deadline, d.ok = ctx.Deadline()
	return &tablet.TraverseResponse{}, nil
}

func testFetcher(r Resolver, cfg Config) *pageFetcher {
	return &pageFetcher{
		resolver: r,
		table:    TableIdentity{Name: "t1", Tid: 3, Partitions: []uint32{4, 9}},
		index:    "card",
		cfg:      cfg,
	}
}

func TestFetchRequest(t *testing.T) {
	ft := &fakeTablet{pages: map[uint32][]*tablet.TraverseResponse{
		9: {pageOf(rec("a", 5, "x"))},
	}}
	cfg := DefaultConfig()
	cfg.TraverseLimit = 50
	cfg.RemoveDuplicateByTime = true
	f := testFetcher(&fakeResolver{tablet: ft}, cfg)

	res, err := f.fetch(context.Background(), 1, "", 0)
	assert.NilError(t, err)
	assert.Equal(t, uint32(1), res.count)
	assert.DeepEqual(t, pageOf(rec("a", 5, "x")).Pairs, res.payload)

	_, err = f.fetch(context.Background(), 1, "k2", 100)
	assert.NilError(t, err)

	assert.DeepEqual(t, []tablet.TraverseRequest{
		{Tid: 3, Pid: 9, IdxName: "card", Limit: 50, EnableRemoveDuplicatedRecord: true},
		{Tid: 3, Pid: 9, IdxName: "card", Pk: "k2", Ts: 100, Limit: 50, EnableRemoveDuplicatedRecord: true},
	}, ft.reqs)
}

func TestFetchInvalidPartition(t *testing.T) {
	ft := &fakeTablet{}
	f := testFetcher(&fakeResolver{tablet: ft}, DefaultConfig())
	_, err := f.fetch(context.Background(), 2, "", 0)
	assert.Assert(t, errors.Is(err, ErrInvalidPartition))
	_, err = f.fetch(context.Background(), -1, "", 0)
	assert.Assert(t, errors.Is(err, ErrInvalidPartition))
	assert.Equal(t, 0, len(ft.reqs))
}

func TestFetchRouteError(t *testing.T) {
	f := testFetcher(&fakeResolver{routeErr: errors.New("no endpoint")}, DefaultConfig())
	_, err := f.fetch(context.Background(), 0, "", 0)
	assert.Assert(t, errors.Is(err, ErrRemoteUnavailable))
	assert.ErrorContains(t, err, "route tid 3 pid 4")
}

func TestFetchTimeout(t *testing.T) {
	dt := &deadlineTablet{}
	cfg := DefaultConfig()
	cfg.RPCTimeout = time.Minute
	f := testFetcher(&fakeResolver{tablet: dt}, cfg)
	_, err := f.fetch(context.Background(), 0, "", 0)
	assert.NilError(t, err)
	assert.Assert(t, dt.ok)
	assert.Assert(t, time.Until(dt.deadline) <= time.Minute)

	cfg.RPCTimeout = 0
	f = testFetcher(&fakeResolver{tablet: dt}, cfg)
	_, err = f.fetch(context.Background(), 0, "", 0)
	assert.NilError(t, err)
	assert.Assert(t, !dt.ok)
}
