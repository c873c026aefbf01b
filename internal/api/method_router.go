package api

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

// RequestHandler handles one JSON-RPC method. Handlers write the response
// themselves or return an *httperrors.HTTPError.
type RequestHandler interface {
	Handle(c echo.Context, req *jsonrpc.Request) error
}

type RequestHandlerFunc func(c echo.Context, req *jsonrpc.Request) error

func (f RequestHandlerFunc) Handle(c echo.Context, req *jsonrpc.Request) error {
	return f(c, req)
}

// MethodRouter maps method names to handlers. It is populated during boot
// and read-only afterwards, so lookups need no locking.
type MethodRouter struct {
	handlers map[string]namedHandler
	fallback namedHandler
}

type namedHandler struct {
	name    string
	handler RequestHandler
}

func NewMethodRouter(fallbackName string, fallback RequestHandler) *MethodRouter {
	return &MethodRouter{
		handlers: make(map[string]namedHandler),
		fallback: namedHandler{name: fallbackName, handler: fallback},
	}
}

// Add registers handler for the exact, case sensitive method name.
func (r *MethodRouter) Add(method string, handler RequestHandler) {
	r.handlers[method] = namedHandler{name: method, handler: handler}
}

// Lookup returns the handler for method, or the fallback.
func (r *MethodRouter) Lookup(method string) RequestHandler {
	_, h := r.lookup(method)
	return h
}

// LookupNamed also returns the label used for metrics.
func (r *MethodRouter) LookupNamed(method string) (string, RequestHandler) {
	return r.lookup(method)
}

func (r *MethodRouter) lookup(method string) (string, RequestHandler) {
	if h, ok := r.handlers[method]; ok {
		return h.name, h.handler
	}

	return r.fallback.name, r.fallback.handler
}
