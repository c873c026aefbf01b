package sendtransaction

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/downstream"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/util"
	"github/chapool/go-ethsigner/internal/wallet/nonce"
)

const (
	MethodEthSendTransaction    = "eth_sendTransaction"
	MethodEeaSendTransaction    = "eea_sendTransaction"
	MethodEthSendRawTransaction = "eth_sendRawTransaction"
	MethodEeaSendRawTransaction = "eea_sendRawTransaction"
)

// Kind selects between public and privacy transactions.
type Kind int

const (
	Public Kind = iota
	Private
)

// At most one resubmission, and only after the node rejected a nonce the
// proxy picked itself.
const maxAttempts = 2

var errNonceTooLow = errors.New("node rejected nonce as too low")

type handler struct {
	s    *api.Server
	kind Kind
}

// NewHandler signs the transaction in params with the proxy's key and submits
// it to the node as a raw transaction under the original request id.
func NewHandler(s *api.Server, kind Kind) api.RequestHandler {
	return &handler{s: s, kind: kind}
}

func (h *handler) method() string {
	if h.kind == Private {
		return MethodEeaSendTransaction
	}

	return MethodEthSendTransaction
}

func (h *handler) rawMethod() string {
	if h.kind == Private {
		return MethodEeaSendRawTransaction
	}

	return MethodEthSendRawTransaction
}

func (h *handler) Handle(c echo.Context, req *jsonrpc.Request) error {
	ctx := c.Request().Context()
	log := util.LogFromContext(ctx)

	params, err := h.parseParams(req.Params)
	if err != nil {
		log.Debug().Err(err).Msg("Invalid transaction parameters")
		return httperrors.InvalidParams(req.ID).Wrap(err)
	}

	if params.Tx.From != h.s.Serializer.Address() {
		log.Info().Str("from", params.Tx.From.Hex()).Msg("Transaction from address is not the signing account")
		return httperrors.BadRequest(req.ID, jsonrpc.ErrSigningFromIsNotAnUnlockedAccount)
	}

	key, source := h.nonceSource(params)

	attempt := 0
	var res *downstream.Response

	err = retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				log.Info().Msg("Nonce too low, resynchronising and resubmitting")
				h.s.Metrics.ObserveNonceResync()

				if err := h.s.Nonces.Resync(ctx, key, source); err != nil {
					return retry.Unrecoverable(h.nodeQueryError(req.ID, err))
				}
			}

			r, err := h.submit(c, req, params, key, source)
			if err != nil {
				return err
			}
			res = r

			return nil
		},
		retry.Attempts(maxAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errNonceTooLow) && !params.NonceSupplied()
		}),
	)

	if err != nil {
		var he *httperrors.HTTPError
		if !errors.As(err, &he) {
			he = httperrors.InternalError(req.ID, err)
		}

		if errors.Is(err, errNonceTooLow) {
			h.s.Metrics.ObserveSignedTransaction(h.method(), rejectionNonceTooLow.String())
		}

		return he
	}

	h.s.Metrics.ObserveSignedTransaction(h.method(), "submitted")

	return api.Relay(c, res)
}

func (h *handler) parseParams(raw json.RawMessage) (*Params, error) {
	if h.kind == Private {
		return parsePrivateParams(raw)
	}

	return parsePublicParams(raw)
}

// nonceSource returns the counter key and node query for params. Privacy
// transactions count per privacy group or party set.
func (h *handler) nonceSource(p *Params) (string, nonce.Source) {
	from := p.Tx.From
	key := strings.ToLower(from.Hex())

	switch {
	case p.Private == nil:
		return key, func(ctx context.Context) (uint64, error) {
			return h.s.Downstream.PendingNonceAt(ctx, from)
		}
	case p.PrivacyGroupID != "":
		return key + "|group|" + p.PrivacyGroupID, func(ctx context.Context) (uint64, error) {
			return h.s.Downstream.PrivateNonceForGroup(ctx, from, p.PrivacyGroupID)
		}
	default:
		return key + "|parties|" + p.PrivateFrom + "|" + strings.Join(p.PrivateFor, ","), func(ctx context.Context) (uint64, error) {
			return h.s.Downstream.PrivateNonceForParties(ctx, from, p.PrivateFrom, p.PrivateFor)
		}
	}
}

// submit runs one NONCE_SET, SIGNED, FORWARDED pass. A node rejection for a
// low nonce is returned wrapping errNonceTooLow so the caller may retry. A
// nonce taken from the counter is handed back whenever the node definitely
// did not accept the transaction.
func (h *handler) submit(c echo.Context, req *jsonrpc.Request, p *Params, key string, source nonce.Source) (*downstream.Response, error) {
	ctx := c.Request().Context()
	log := util.LogFromContext(ctx)

	n, err := h.resolveNonce(ctx, p, key, source)
	if err != nil {
		return nil, retry.Unrecoverable(h.nodeQueryError(req.ID, err))
	}

	release := func() {
		if !p.NonceSupplied() {
			h.s.Nonces.Release(key, n)
		}
	}

	raw, err := h.sign(ctx, p, n)
	if err != nil {
		release()
		log.Error().Err(err).Msg("Failed to sign transaction")
		return nil, retry.Unrecoverable(httperrors.InternalError(req.ID, err))
	}

	body, err := h.rawRequest(req.ID, raw)
	if err != nil {
		release()
		return nil, retry.Unrecoverable(httperrors.InternalError(req.ID, err))
	}

	r := c.Request()
	res, err := h.s.Downstream.Forward(ctx, http.MethodPost, r.URL.Path, r.URL.RawQuery, downstream.RewrittenHeader(r.Header), body)
	if err != nil {
		if downstream.IsTransportError(err) {
			// the node may have applied it, the nonce stays taken
			return nil, retry.Unrecoverable(httperrors.GatewayTimeout(req.ID, err))
		}
		release()
		return nil, retry.Unrecoverable(httperrors.InternalError(req.ID, err))
	}

	nodeRes, err := jsonrpc.ParseResponse(res.Body)
	if err != nil || nodeRes.Error == nil {
		// success, or a reply we cannot interpret: hand it back as is
		log.Debug().Uint64("nonce", n).Int("status", res.StatusCode).Msg("Transaction submitted")
		return res, nil
	}

	rejection := classify(nodeRes.Error)
	log.Debug().Uint64("nonce", n).Int("code", nodeRes.Error.Code).Str("message", nodeRes.Error.Message).Str("rejection", rejection.String()).Msg("Node rejected transaction")

	switch rejection {
	case rejectionNonceTooLow:
		return nil, httperrors.BadRequest(req.ID, jsonrpc.ErrNonceTooLow).Wrap(errNonceTooLow)
	case rejectionInsufficientFunds:
		release()
		h.s.Metrics.ObserveSignedTransaction(h.method(), rejection.String())
		return nil, retry.Unrecoverable(httperrors.BadRequest(req.ID, jsonrpc.ErrTransactionUpfrontCostExceedsBalance))
	default:
		release()
		h.s.Metrics.ObserveSignedTransaction(h.method(), rejection.String())
		return nil, retry.Unrecoverable(httperrors.BadRequest(req.ID, *nodeRes.Error))
	}
}

func (h *handler) resolveNonce(ctx context.Context, p *Params, key string, source nonce.Source) (uint64, error) {
	if p.NonceSupplied() {
		return *p.Tx.Nonce, nil
	}

	return h.s.Nonces.Next(ctx, key, source)
}

func (h *handler) sign(ctx context.Context, p *Params, n uint64) ([]byte, error) {
	tx := p.Tx.WithNonce(n)

	if p.Private == nil {
		raw, hash, err := h.s.Serializer.SignTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}

		util.LogFromContext(ctx).Trace().Str("tx_hash", hash.Hex()).Msg("Signed transaction")
		return raw, nil
	}

	private := *p.Private
	private.Transaction = *tx

	return h.s.Serializer.SignPrivateTransaction(ctx, &private)
}

func (h *handler) rawRequest(id json.RawMessage, raw []byte) ([]byte, error) {
	req, err := jsonrpc.NewRequest(id, h.rawMethod(), hexutil.Encode(raw))
	if err != nil {
		return nil, err
	}

	return jsonrpc.EncodeRequest(req)
}

// nodeQueryError maps a failed nonce query to the client response.
func (h *handler) nodeQueryError(id json.RawMessage, err error) *httperrors.HTTPError {
	if downstream.IsTransportError(err) {
		return httperrors.GatewayTimeout(id, err)
	}

	return httperrors.InternalError(id, err)
}
