package catalog

import (
	"sync"

	"github.com/aita/kvtraverse/db"
	"github.com/aita/kvtraverse/tablet"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
)

// Connections keeps one gRPC connection per tablet address.
type Connections struct {
	dialOptions []grpc.DialOption
	clientOpts  []tablet.ClientOption
	maxRetries  uint64
	log         *logrus.Entry

	mu    sync.Mutex
	conns map[string]*conn
}

type conn struct {
	*grpc.ClientConn
	tablet db.Tablet
}

type ConnectionsOption func(*Connections)

func WithDialOptions(opts ...grpc.DialOption) ConnectionsOption {
	return func(c *Connections) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

func WithClientOptions(opts ...tablet.ClientOption) ConnectionsOption {
	return func(c *Connections) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// WithRetries retries traverse calls that fail to reach the tablet.
func WithRetries(n uint64) ConnectionsOption {
	return func(c *Connections) {
		c.maxRetries = n
	}
}

func WithLogger(log *logrus.Entry) ConnectionsOption {
	return func(c *Connections) {
		c.log = log
	}
}

func NewConnections(opts ...ConnectionsOption) *Connections {
	c := &Connections{
		log:   logrus.NewEntry(logrus.StandardLogger()),
		conns: map[string]*conn{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the tablet at addr, dialing it on first use.
func (c *Connections) Get(addr string) (db.Tablet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x, ok := c.conns[addr]; ok {
		return x.tablet, nil
	}
	cc, err := grpc.Dial(addr, c.dialOptions...)
	if err != nil {
		return nil, err
	}
	var t db.Tablet = tablet.NewClient(cc, c.clientOpts...)
	if c.maxRetries > 0 {
		t = tablet.NewRetrying(t, c.maxRetries)
	}
	c.conns[addr] = &conn{ClientConn: cc, tablet: t}
	c.log.WithField("addr", addr).Debug("dialed tablet")
	return t, nil
}

func (c *Connections) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

func (c *Connections) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	for addr, x := range c.conns {
		err = multierr.Append(err, x.Close())
		delete(c.conns, addr)
	}
	return err
}
