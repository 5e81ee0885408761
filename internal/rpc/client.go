package rpc

import (
	"net"
	"net/http"
	"time"

	solrpc "github.com/gagliardetto/solana-go/rpc"
	soljsonrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/klauspost/compress/gzhttp"
)

const (
	defaultMaxIdleConnsPerHost = 9
	defaultTimeout             = 2 * time.Minute
	defaultKeepAlive           = 180 * time.Second
)

// New creates a Solana JSON RPC client over a gzip-aware HTTP transport. Requests are attempted
// once unless retryOpt asks for more.
func New(rpcEndpoint string, retryOpt *RetryOptions) *solrpc.Client {
	return NewWithHeaders(rpcEndpoint, nil, retryOpt)
}

// NewWithHeaders is New with custom headers sent on every request, e.g. provider API keys.
func NewWithHeaders(rpcEndpoint string, headers map[string]string, retryOpt *RetryOptions) *solrpc.Client {
	opts := &soljsonrpc.RPCClientOpts{
		HTTPClient:    newHTTP(),
		CustomHeaders: headers,
	}
	inner := soljsonrpc.NewClientWithOpts(rpcEndpoint, opts)
	return solrpc.NewWithCustomRPCClient(WithRetry(inner, retryOpt))
}

// newHTTP returns a client that is safe for concurrent use by multiple goroutines.
func newHTTP() *http.Client {
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: gzhttp.Transport(newHTTPTransport()),
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		IdleConnTimeout:     defaultTimeout,
		MaxConnsPerHost:     defaultMaxIdleConnsPerHost,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		Proxy:               http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: defaultKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
