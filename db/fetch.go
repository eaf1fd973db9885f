package db

import (
	"context"

	"github.com/aita/kvtraverse/tablet"
	"github.com/pkg/errors"
)

type pageResult struct {
	payload []byte
	count   uint32
}

// pageFetcher issues one traverse call per page. It holds no state between
// calls.
type pageFetcher struct {
	resolver Resolver
	table    TableIdentity
	index    string
	cfg      Config
}

func (f *pageFetcher) fetch(ctx context.Context, pid int, resumeKey string, resumeTs uint64) (pageResult, error) {
	if pid < 0 || pid >= len(f.table.Partitions) {
		return pageResult{}, errors.Wrapf(ErrInvalidPartition, "partition index %d, table has %d", pid, len(f.table.Partitions))
	}
	partition := f.table.Partitions[pid]
	t, err := f.resolver.Route(ctx, f.table.Tid, partition, f.cfg.ReadStrategy)
	if err != nil {
		return pageResult{}, &unavailableError{cause: errors.Wrapf(err, "route tid %d pid %d", f.table.Tid, partition)}
	}
	req := &tablet.TraverseRequest{
		Tid:                          f.table.Tid,
		Pid:                          partition,
		IdxName:                      f.index,
		Limit:                        f.cfg.TraverseLimit,
		EnableRemoveDuplicatedRecord: f.cfg.RemoveDuplicateByTime,
	}
	if resumeKey != "" {
		req.Pk = resumeKey
		req.Ts = resumeTs
	}
	if f.cfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.RPCTimeout)
		defer cancel()
	}
	res, err := t.Traverse(ctx, req)
	if err != nil {
		return pageResult{}, &unavailableError{cause: err}
	}
	if res == nil {
		return pageResult{}, ErrRemoteUnavailable
	}
	if res.Code != 0 {
		return pageResult{}, &RemoteTableError{Code: res.Code, Msg: res.Msg}
	}
	return pageResult{payload: res.Pairs, count: res.Count}, nil
}
