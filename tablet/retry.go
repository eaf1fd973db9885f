package tablet

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Traverser is anything that serves traverse calls, a *Client included.
type Traverser interface {
	Traverse(context.Context, *TraverseRequest) (*TraverseResponse, error)
}

// Retrying retries calls that failed because the tablet could not be
// reached. Answers carrying a non-zero code are never retried.
type Retrying struct {
	next       Traverser
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func NewRetrying(next Traverser, maxRetries uint64) *Retrying {
	return &Retrying{
		next:       next,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

func (r *Retrying) Traverse(ctx context.Context, req *TraverseRequest) (*TraverseResponse, error) {
	var res *TraverseResponse
	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	err := backoff.Retry(func() error {
		var err error
		res, err = r.next.Traverse(ctx, req)
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Retryable reports whether err is a transport failure worth another try.
func Retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
