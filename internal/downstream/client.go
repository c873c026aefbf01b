package downstream

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/metrics"
	"github/chapool/go-ethsigner/internal/util"
)

var (
	// ErrTimeout means no response headers arrived within the configured timeout.
	ErrTimeout = errors.New("downstream request timed out")
	// ErrUnavailable means the node could not be reached at all.
	ErrUnavailable = errors.New("downstream node unavailable")
)

// IsTransportError reports whether err means no response was obtained from the node.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// hop-by-hop headers, never forwarded in either direction
//
//nolint:gochecknoglobals
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

// Response is a fully buffered node reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client talks to the downstream Ethereum node. Forward relays raw bytes for
// the proxy path while the rpc/ethclient pair serves the typed nonce queries.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	rpc        *rpc.Client
	eth        *ethclient.Client
	timeout    time.Duration
	metrics    *metrics.Service
}

func NewClient(ctx context.Context, rawURL string, timeout time.Duration, m *metrics.Service) (*Client, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid downstream URL")
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("unsupported downstream URL scheme %q", base.Scheme)
	}

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport")
	}
	transport = transport.Clone()
	transport.MaxIdleConnsPerHost = 64
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext //nolint:mnd

	httpClient := &http.Client{Transport: transport}

	rpcClient, err := rpc.DialOptions(ctx, rawURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create downstream rpc client")
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		rpc:        rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timeout:    timeout,
		metrics:    m,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
	c.httpClient.CloseIdleConnections()
}

// Forward sends body to the node at the same path and query the client used.
// The timeout covers connecting, writing the request and waiting for the
// response headers; reading the body afterwards is not bounded by it. The
// request is detached from ctx cancellation so that a client hanging up does
// not abort a submission the node may already be applying.
func (c *Client) Forward(ctx context.Context, method string, path string, rawQuery string, header http.Header, body []byte) (*Response, error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	target := c.resolve(path, rawQuery)

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create downstream request")
	}

	req.Header = cloneHeader(header)
	req.Host = c.base.Host
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	timer := time.AfterFunc(c.timeout, cancel)

	res, err := c.httpClient.Do(req)
	if !timer.Stop() {
		if res != nil {
			_ = res.Body.Close()
		}
		c.metrics.ObserveDownstreamFailure("timeout")
		util.LogFromContext(ctx).Debug().Str("url", target).Dur("timeout", c.timeout).Msg("Downstream request timed out")
		return nil, ErrTimeout
	}

	if err != nil {
		c.metrics.ObserveDownstreamFailure("unavailable")
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	c.metrics.ObserveDownstreamDuration(time.Since(start).Seconds())

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.ObserveDownstreamFailure("unavailable")
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     cloneHeader(res.Header),
		Body:       resBody,
	}, nil
}

// PendingNonceAt returns eth_getTransactionCount(address, "pending").
func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	nonce, err := c.eth.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, c.wrapQueryError(ctx, err, "eth_getTransactionCount")
	}

	return nonce, nil
}

// PrivateNonceForGroup returns priv_getTransactionCount(address, privacyGroupId).
func (c *Client) PrivateNonceForGroup(ctx context.Context, address common.Address, privacyGroupID string) (uint64, error) {
	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	var nonce hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &nonce, "priv_getTransactionCount", address, privacyGroupID); err != nil {
		return 0, c.wrapQueryError(ctx, err, "priv_getTransactionCount")
	}

	return uint64(nonce), nil
}

// PrivateNonceForParties returns priv_getEeaTransactionCount(address, privateFrom, privateFor).
func (c *Client) PrivateNonceForParties(ctx context.Context, address common.Address, privateFrom string, privateFor []string) (uint64, error) {
	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	var nonce hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &nonce, "priv_getEeaTransactionCount", address, privateFrom, privateFor); err != nil {
		return 0, c.wrapQueryError(ctx, err, "priv_getEeaTransactionCount")
	}

	return uint64(nonce), nil
}

func (c *Client) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
}

func (c *Client) wrapQueryError(ctx context.Context, err error, method string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.metrics.ObserveDownstreamFailure("timeout")
		return errors.Wrap(ErrTimeout, method)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return errors.Wrap(err, method)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return errors.Wrap(err, method)
	}

	c.metrics.ObserveDownstreamFailure("unavailable")
	return errors.Wrapf(ErrUnavailable, "%s: %v", method, err)
}

// resolve maps the client's request path onto the node URL. The root path
// maps to the configured URL itself, other paths are appended to it.
func (c *Client) resolve(path string, rawQuery string) string {
	u := *c.base

	suffix := strings.TrimPrefix(path, "/")
	switch {
	case suffix != "":
		u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + suffix
	case u.Path == "":
		u.Path = "/"
	}

	u.RawPath = ""
	u.RawQuery = rawQuery

	return u.String()
}

// RewrittenHeader returns the client's headers for a request whose body the
// proxy built itself. Encoding negotiation is left to the transport so that
// the node's reply can be decoded.
func RewrittenHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}

	out.Del("Accept-Encoding")
	out.Del("Content-Encoding")

	return out
}

func cloneHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}

	for _, k := range hopHeaders {
		out.Del(k)
	}

	return out
}
