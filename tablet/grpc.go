package tablet

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	serviceName    = "kvtraverse.tablet.TabletServer"
	traverseMethod = "/" + serviceName + "/Traverse"
)

type message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Codec is the gRPC codec for tablet messages. Clients and servers force it
// on every call since the messages are not generated protobuf types.
var Codec encoding.Codec = wireCodec{}

type wireCodec struct{}

func (wireCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, errors.Errorf("tablet: cannot marshal %T", v)
	}
	return m.Marshal()
}

func (wireCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(message)
	if !ok {
		return errors.Errorf("tablet: cannot unmarshal into %T", v)
	}
	return m.Unmarshal(data)
}

func (wireCodec) Name() string { return "tablet" }

// TabletServer is the server API of a tablet.
type TabletServer interface {
	Traverse(context.Context, *TraverseRequest) (*TraverseResponse, error)
}

// ServerOption must be passed to grpc.NewServer for servers that register a
// TabletServer.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec)
}

func RegisterTabletServer(s grpc.ServiceRegistrar, srv TabletServer) {
	s.RegisterService(&serviceDesc, srv)
}

// serviceDesc is the TabletServer service of tablet.proto.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TabletServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Traverse",
			Handler:    traverseHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tablet.proto",
}

func traverseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TraverseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TabletServer).Traverse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: traverseMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TabletServer).Traverse(ctx, req.(*TraverseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client talks to one tablet over an established connection.
type Client struct {
	cc      grpc.ClientConnInterface
	metrics *Metrics
}

type ClientOption func(*Client)

func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(cc grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{cc: cc}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Traverse(ctx context.Context, req *TraverseRequest) (*TraverseResponse, error) {
	start := time.Now()
	res := new(TraverseResponse)
	err := c.cc.Invoke(ctx, traverseMethod, req, res, grpc.ForceCodec(Codec))
	c.metrics.observe(start, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}
