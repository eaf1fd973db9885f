package db

// partitionWalker tracks which partition the next page comes from. A page
// holding fewer records than the limit is the last one of its partition;
// tablets send no other end-of-partition signal. A partition holding an
// exact multiple of the limit therefore costs one extra, empty page.
type partitionWalker struct {
	partitions int
	limit      uint32

	pid      int
	finished bool

	// continuing is set while the partition has more pages. Only then is
	// the resume token kept.
	continuing bool
	resumeKey  string
	resumeTs   uint64
}

func newPartitionWalker(partitions int, limit uint32) partitionWalker {
	return partitionWalker{
		partitions: partitions,
		limit:      limit,
		finished:   partitions == 0,
	}
}

// resume returns the token for the next fetch of the current partition.
// The key is empty for the first page of a partition.
func (w *partitionWalker) resume() (string, uint64) {
	return w.resumeKey, w.resumeTs
}

// observe records the size of the page just fetched and reports whether
// the walker moved to the next partition.
func (w *partitionWalker) observe(count uint32) bool {
	if count >= w.limit {
		w.continuing = true
		return false
	}
	w.pid++
	w.continuing = false
	w.resumeKey = ""
	w.resumeTs = 0
	if w.pid >= w.partitions {
		w.finished = true
	}
	return true
}

// remember saves the last record decoded from a full page.
func (w *partitionWalker) remember(key string, ts uint64) {
	if !w.continuing {
		return
	}
	w.resumeKey = key
	w.resumeTs = ts
}
