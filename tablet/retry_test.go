package tablet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gotest.tools/assert"
)

type flakyTraverser struct {
	errs  []error
	calls int
}

func (f *flakyTraverser) Traverse(ctx context.Context, req *TraverseRequest) (*TraverseResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &TraverseResponse{Count: 1}, nil
}

func fastRetrying(next Traverser, max uint64) *Retrying {
	r := NewRetrying(next, max)
	r.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}
	return r
}

func TestRetryingUnavailable(t *testing.T) {
	f := &flakyTraverser{errs: []error{
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	}}
	res, err := fastRetrying(f, 3).Traverse(context.Background(), &TraverseRequest{})
	assert.NilError(t, err)
	assert.Equal(t, uint32(1), res.Count)
	assert.Equal(t, 3, f.calls)
}

func TestRetryingGivesUp(t *testing.T) {
	f := &flakyTraverser{errs: []error{
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	}}
	_, err := fastRetrying(f, 1).Traverse(context.Background(), &TraverseRequest{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, 2, f.calls)
}

func TestRetryingPermanent(t *testing.T) {
	boom := errors.New("boom")
	f := &flakyTraverser{errs: []error{boom}}
	_, err := fastRetrying(f, 5).Traverse(context.Background(), &TraverseRequest{})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, f.calls)
}
