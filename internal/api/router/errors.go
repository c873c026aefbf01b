package router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/util"
)

// HTTPErrorHandler renders every error as a JSON-RPC error response.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := toHTTPError(err)
	log := util.LogFromContext(c.Request().Context())

	if he.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", he.Status).Int("code", he.RPCError.Code).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", he.Status).Int("code", he.RPCError.Code).Msg("Request rejected")
	}

	res := jsonrpc.NewErrorResponse(he.ID, he.RPCError)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Status)
	} else {
		err = c.JSON(he.Status, res)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}

func toHTTPError(err error) *httperrors.HTTPError {
	var he *httperrors.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ee *echo.HTTPError
	if errors.As(err, &ee) {
		switch {
		case ee.Code == http.StatusRequestEntityTooLarge:
			return httperrors.RequestEntityTooLarge().Wrap(err)
		case ee.Code < http.StatusInternalServerError:
			return httperrors.NewHTTPError(ee.Code, nil, jsonrpc.ErrInvalidRequest).Wrap(err)
		}
	}

	return httperrors.InternalError(nil, err)
}
