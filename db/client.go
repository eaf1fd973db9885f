package db

import (
	"context"

	"github.com/aita/kvtraverse/codec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RowDecoder turns a record value into typed columns.
type RowDecoder interface {
	Decode(buf []byte, schema []codec.ColumnDesc, row []interface{}, start, length int) error
}

type RowDecoderFunc func(buf []byte, schema []codec.ColumnDesc, row []interface{}, start, length int) error

func (f RowDecoderFunc) Decode(buf []byte, schema []codec.ColumnDesc, row []interface{}, start, length int) error {
	return f(buf, schema, row, start, length)
}

// Client opens traverse cursors over the tables a Resolver knows about.
// It is safe for concurrent use; the cursors it returns are not.
type Client struct {
	resolver Resolver
	cfg      Config
	decoder  RowDecoder
	log      *logrus.Entry
}

type Option func(*Client)

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithRowDecoder(d RowDecoder) Option {
	return func(c *Client) {
		c.decoder = d
	}
}

func NewClient(resolver Resolver, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		resolver: resolver,
		cfg:      cfg,
		decoder:  RowDecoderFunc(codec.Decode),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Config() Config {
	return c.cfg
}

// Traverse returns a cursor over every record of table, ordered by index
// when index is not empty. schema may be nil when values are read raw.
func (c *Client) Traverse(ctx context.Context, table, index string, schema []codec.ColumnDesc) (*Cursor, error) {
	id, err := c.resolver.Resolve(ctx, table)
	if err != nil {
		return nil, errors.WithMessagef(err, "traverse %s", table)
	}
	if id.Name == "" {
		id.Name = table
	}
	return newCursor(c.resolver, id, index, schema, c.cfg, c.decoder, c.log), nil
}
