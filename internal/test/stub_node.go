package test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github/chapool/go-ethsigner/internal/jsonrpc"
)

// StubResponse is one scripted reply of a StubNode.
type StubResponse struct {
	Status int
	Header http.Header

	// Result or Error are wrapped in an envelope carrying the request id.
	// Body, when set, is sent instead.
	Result json.RawMessage
	Error  *jsonrpc.Error
	Body   []byte

	Delay time.Duration
}

func Result(raw string) StubResponse {
	return StubResponse{Result: json.RawMessage(raw)}
}

func RPCError(code int, message string) StubResponse {
	return StubResponse{Error: &jsonrpc.Error{Code: code, Message: message}}
}

// RecordedRequest is a request as received by the StubNode.
type RecordedRequest struct {
	HTTPMethod string
	Path       string
	RawQuery   string
	Header     http.Header
	Body       []byte

	// nil for bodies that are not JSON-RPC requests
	RPC *jsonrpc.Request
}

// StubNode plays the downstream Ethereum node. Replies are scripted per
// JSON-RPC method; requests that are not JSON-RPC are keyed by
// "<HTTP method> <path>". The last scripted reply for a key repeats.
type StubNode struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]StubResponse
	requests  []RecordedRequest
}

func NewStubNode(t *testing.T) *StubNode {
	t.Helper()

	n := &StubNode{
		responses: make(map[string][]StubResponse),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.server.Close)

	return n
}

func (n *StubNode) URL() string {
	return n.server.URL
}

// Respond queues replies for key.
func (n *StubNode) Respond(key string, responses ...StubResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.responses[key] = append(n.responses[key], responses...)
}

// Requests returns all requests received for key, in arrival order.
func (n *StubNode) Requests(key string) []RecordedRequest {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []RecordedRequest
	for _, r := range n.requests {
		if requestKey(r) == key {
			out = append(out, r)
		}
	}

	return out
}

func (n *StubNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rec := RecordedRequest{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Header:     r.Header.Clone(),
		Body:       body,
	}
	if req, err := jsonrpc.ParseRequest(body); err == nil {
		rec.RPC = req
	}

	res, ok := n.next(rec)
	if !ok {
		res = RPCError(jsonrpc.CodeMethodNotFound, fmt.Sprintf("stub node has no reply for %q", requestKey(rec)))
	}

	if res.Delay > 0 {
		select {
		case <-time.After(res.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, values := range res.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}

	out := res.Body
	if out == nil {
		var id json.RawMessage
		if rec.RPC != nil {
			id = rec.RPC.ID
		}

		var envelope *jsonrpc.Response
		if res.Error != nil {
			envelope = jsonrpc.NewErrorResponse(id, *res.Error)
		} else {
			envelope = jsonrpc.NewResultResponse(id, res.Result)
		}
		out, _ = jsonrpc.EncodeResponse(envelope)
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (n *StubNode) next(rec RecordedRequest) (StubResponse, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.requests = append(n.requests, rec)

	key := requestKey(rec)
	queue := n.responses[key]
	if len(queue) == 0 {
		return StubResponse{}, false
	}

	res := queue[0]
	if len(queue) > 1 {
		n.responses[key] = queue[1:]
	}

	return res, true
}

func requestKey(r RecordedRequest) string {
	if r.RPC != nil {
		return r.RPC.Method
	}

	return r.HTTPMethod + " " + r.Path
}
