package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/require"
)

func TestRPC_IsRetryableJSONRPC(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"net timeout", timeoutErr{}, true},
		{"econnreset", syscall.ECONNRESET, true},
		{"econnrefused", syscall.ECONNREFUSED, true},
		{"broken pipe msg", errors.New("write: broken pipe"), true},
		{"http 429", statusCodeErr(http.StatusTooManyRequests), true},
		{"http 503", statusCodeErr(http.StatusServiceUnavailable), true},
		{"http 400", statusCodeErr(http.StatusBadRequest), false},
		{"rpc busy -32005", &jsonrpc.RPCError{Code: -32005}, true},
		{"simulation failure -32002", &jsonrpc.RPCError{Code: -32002}, false},
		{"json syntax", &json.SyntaxError{Offset: 1}, false},
		{"random non-retryable", errors.New("bad request"), false},
		{"net.Error non-timeout", net.UnknownNetworkError("wat"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, isRetryableJSONRPC(tc.err))
		})
	}
}

func TestRPC_WithRetry_NilOptionsIsSingleAttempt(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callForIntoSeq: []error{syscall.ECONNRESET, nil},
	}
	c := WithRetry(inner, nil)
	require.Same(t, inner, c, "a single attempt needs no wrapper")

	var out any
	require.ErrorIs(t, c.CallForInto(context.Background(), &out, "m", nil), syscall.ECONNRESET)
	require.Equal(t, int32(1), inner.callForIntoN.Load())
}

func TestRPC_WithRetry_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callForIntoSeq: []error{syscall.ECONNRESET, syscall.ETIMEDOUT, nil},
	}
	c := WithRetry(inner, fastRetryOpt(5))

	var out any
	require.NoError(t, c.CallForInto(context.Background(), &out, "m", nil))
	require.Equal(t, int32(3), inner.callForIntoN.Load())
}

func TestRPC_WithRetry_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callForIntoSeq: []error{errors.New("bad request"), nil},
	}
	c := WithRetry(inner, fastRetryOpt(5))

	var out any
	err := c.CallForInto(context.Background(), &out, "m", nil)
	require.EqualError(t, err, "bad request")
	require.Equal(t, int32(1), inner.callForIntoN.Load())
}

func TestRPC_WithRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callForIntoSeq: []error{syscall.ECONNRESET, syscall.ECONNRESET, syscall.ECONNRESET, nil},
	}
	c := WithRetry(inner, fastRetryOpt(3))

	var out any
	err := c.CallForInto(context.Background(), &out, "m", nil)
	require.ErrorIs(t, err, syscall.ECONNRESET)
	require.Equal(t, int32(3), inner.callForIntoN.Load())
}

func TestRPC_WithRetry_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callForIntoSeq: []error{syscall.ECONNRESET, nil},
	}
	c := WithRetry(inner, &RetryOptions{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  500 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var out any
	err := c.CallForInto(ctx, &out, "m", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), inner.callForIntoN.Load())
}

func TestRPC_WithRetry_CallBatchReturnsResponses(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callBatchSeq: []error{syscall.ECONNRESET, nil},
	}
	c := WithRetry(inner, fastRetryOpt(3))

	resp, err := c.CallBatch(context.Background(), jsonrpc.RPCRequests{})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, int32(2), inner.callBatchN.Load())
}

func TestRPC_WithRetry_CallWithCallback(t *testing.T) {
	t.Parallel()

	inner := &seqClient{
		callWithCbSeq: []error{syscall.ETIMEDOUT, nil},
	}
	c := WithRetry(inner, fastRetryOpt(3))

	require.NoError(t, c.CallWithCallback(context.Background(), "m", nil, func(*http.Request, *http.Response) error { return nil }))
	require.Equal(t, int32(2), inner.callWithCbN.Load())
}

var _ solanarpc.JSONRPCClient = (*retryingJSONRPCClient)(nil)

type seqClient struct {
	callForIntoSeq []error
	callWithCbSeq  []error
	callBatchSeq   []error

	callForIntoN atomic.Int32
	callWithCbN  atomic.Int32
	callBatchN   atomic.Int32
}

func (s *seqClient) CallForInto(ctx context.Context, out any, method string, params []any) error {
	i := int(s.callForIntoN.Add(1)) - 1
	if i >= len(s.callForIntoSeq) {
		return nil
	}
	return s.callForIntoSeq[i]
}

func (s *seqClient) CallWithCallback(ctx context.Context, method string, params []any, cb func(*http.Request, *http.Response) error) error {
	i := int(s.callWithCbN.Add(1)) - 1
	if i >= len(s.callWithCbSeq) {
		return nil
	}
	return s.callWithCbSeq[i]
}

func (s *seqClient) CallBatch(ctx context.Context, req jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	i := int(s.callBatchN.Add(1)) - 1
	if i >= len(s.callBatchSeq) {
		return jsonrpc.RPCResponses{}, nil
	}
	return nil, s.callBatchSeq[i]
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

type statusCodeErr int

func (e statusCodeErr) Error() string   { return "http status" }
func (e statusCodeErr) StatusCode() int { return int(e) }

func fastRetryOpt(max int) *RetryOptions {
	return &RetryOptions{
		MaxAttempts: max,
		BaseBackoff: 1 * time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}
}
