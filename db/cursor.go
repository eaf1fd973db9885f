package db

import (
	"context"

	"github.com/aita/kvtraverse/codec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type cursorState int

const (
	awaitingFetch cursorState = iota
	hasBufferedRecords
	exhausted
)

func (s cursorState) String() string {
	switch s {
	case awaitingFetch:
		return "awaiting_fetch"
	case hasBufferedRecords:
		return "buffered"
	case exhausted:
		return "exhausted"
	}
	return "unknown"
}

type Record struct {
	Key       string
	Timestamp uint64
	Value     []byte
}

// Cursor walks every record of a table, partition by partition, fetching
// pages on demand. A Cursor must not be used from several goroutines at
// once. Any error is final: the cursor stops and keeps returning it.
type Cursor struct {
	index   string
	schema  []codec.ColumnDesc
	decoder RowDecoder
	log     *logrus.Entry

	fetcher pageFetcher
	walker  partitionWalker

	state   cursorState
	page    page
	cur     frame
	valid   bool
	fetches int
	decoded int
	err     error
}

func newCursor(resolver Resolver, table TableIdentity, index string, schema []codec.ColumnDesc, cfg Config, decoder RowDecoder, log *logrus.Entry) *Cursor {
	c := &Cursor{
		index:   index,
		schema:  schema,
		decoder: decoder,
		log: log.WithFields(logrus.Fields{
			"table": table.Name,
			"tid":   table.Tid,
			"index": index,
		}),
		fetcher: pageFetcher{
			resolver: resolver,
			table:    table,
			index:    index,
			cfg:      cfg,
		},
		walker: newPartitionWalker(len(table.Partitions), cfg.TraverseLimit),
	}
	c.syncState()
	return c
}

// HasMore reports whether Advance may still yield records.
func (c *Cursor) HasMore() bool {
	return c.state != exhausted
}

// Advance moves to the next record, fetching a page when the current one is
// consumed. A step may consume trailing page bytes without yielding a
// record, in which case Valid is false and Advance should be called again.
func (c *Cursor) Advance(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	if c.state == exhausted {
		return ErrExhausted
	}
	c.valid = false
	if c.state == awaitingFetch {
		if err := c.fill(ctx); err != nil {
			return c.fail(err)
		}
	}
	f, next, err := decodeFrame(c.page.buf, c.page.off)
	switch {
	case err == errShortFrame:
		if next > len(c.page.buf) {
			next = len(c.page.buf)
		}
		c.page.off = next
	case err != nil:
		return c.fail(errors.Wrapf(err, "partition %d offset %d", c.walker.pid, c.page.off))
	default:
		c.cur = f
		c.valid = true
		c.decoded++
		c.walker.remember(f.key, f.ts)
		c.page.off = next
	}
	// A full page with no record leaves no resume token, and the next
	// fetch would restart the partition.
	if c.page.consumed() && c.walker.continuing && c.decoded == 0 {
		return c.fail(errors.Wrapf(ErrMalformedFrame, "partition %d: full page of %d bytes holds no record", c.walker.pid, len(c.page.buf)))
	}
	c.syncState()
	return nil
}

// Next advances to the next record, skipping steps that yield none. It
// returns false once the table is exhausted or on error.
func (c *Cursor) Next(ctx context.Context) (bool, error) {
	for c.HasMore() {
		if err := c.Advance(ctx); err != nil {
			return false, err
		}
		if c.valid {
			return true, nil
		}
	}
	return false, c.err
}

func (c *Cursor) fill(ctx context.Context) error {
	pid := c.walker.pid
	key, ts := c.walker.resume()
	res, err := c.fetcher.fetch(ctx, pid, key, ts)
	if err != nil {
		return err
	}
	c.fetches++
	if res.count > 0 && len(res.payload) == 0 {
		return errors.Wrapf(ErrMalformedFrame, "page of %d records has no payload", res.count)
	}
	c.page = page{buf: res.payload}
	c.decoded = 0
	log := c.log.WithFields(logrus.Fields{
		"partition": pid,
		"count":     res.count,
		"bytes":     len(res.payload),
	})
	if c.walker.observe(res.count) {
		log.WithField("finished", c.walker.finished).Debug("partition exhausted")
	} else {
		log.Debug("fetched page")
	}
	return nil
}

func (c *Cursor) fail(err error) error {
	c.log.WithFields(logrus.Fields{
		logrus.ErrorKey: err,
		"state":         c.state.String(),
		"partition":     c.walker.pid,
		"remaining":     c.page.remaining(),
		"fetches":       c.fetches,
	}).Warn("traverse failed")
	c.err = err
	c.valid = false
	c.state = exhausted
	return err
}

func (c *Cursor) syncState() {
	switch {
	case !c.page.consumed():
		c.state = hasBufferedRecords
	case c.walker.finished:
		c.state = exhausted
	default:
		c.state = awaitingFetch
	}
}

// Err returns the error that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Valid reports whether the last Advance yielded a record.
func (c *Cursor) Valid() bool {
	return c.valid
}

func (c *Cursor) Key() string {
	return c.cur.key
}

func (c *Cursor) Timestamp() uint64 {
	return c.cur.ts
}

// Value returns the raw value of the current record. The slice aliases the
// page and is only valid until the next Advance.
func (c *Cursor) Value() []byte {
	return c.cur.value
}

// Record returns a copy of the current record.
func (c *Cursor) Record() Record {
	return Record{
		Key:       c.cur.key,
		Timestamp: c.cur.ts,
		Value:     append([]byte(nil), c.cur.value...),
	}
}

func (c *Cursor) Schema() []codec.ColumnDesc {
	return c.schema
}

func (c *Cursor) Index() string {
	return c.index
}

// Partition returns the index of the partition the next page comes from.
func (c *Cursor) Partition() int {
	return c.walker.pid
}

// Fetches returns how many pages the cursor fetched so far.
func (c *Cursor) Fetches() int {
	return c.fetches
}

// DecodeValue decodes the current value into one entry per schema column.
func (c *Cursor) DecodeValue() ([]interface{}, error) {
	if c.schema == nil {
		return nil, ErrUnsupportedWithoutSchema
	}
	row := make([]interface{}, len(c.schema))
	if err := c.DecodeValueInto(row, 0, len(row)); err != nil {
		return nil, err
	}
	return row, nil
}

// DecodeValueInto decodes the current value into row[start:start+length].
func (c *Cursor) DecodeValueInto(row []interface{}, start, length int) error {
	if c.schema == nil {
		return ErrUnsupportedWithoutSchema
	}
	if !c.valid {
		return ErrNoRecord
	}
	return c.decoder.Decode(c.cur.value, c.schema, row, start, length)
}
