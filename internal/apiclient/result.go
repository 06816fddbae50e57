package apiclient

import (
	"context"
	"net/http"
	"time"
)

// Result is the outcome of one API operation. The operation succeeded iff Err is nil.
type Result[T any] struct {
	Data         T
	StatusCode   int
	ResponseTime time.Duration
	Headers      http.Header
	Err          error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

func (r Result[T]) Kind() ErrorKind {
	return KindOf(r.Err)
}

// Go runs operation in its own goroutine.
//
// The callbacks are invoked with the result, in order, before it is sent on the returned
// channel. The channel is buffered and yields exactly one result.
func Go[T any](ctx context.Context, operation func(ctx context.Context) Result[T], callbacks ...func(Result[T])) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)

		result := operation(ctx)
		for _, callback := range callbacks {
			if callback != nil {
				callback(result)
			}
		}
		out <- result
	}()
	return out
}
