package passthrough

import (
	"io"

	"github.com/labstack/echo/v4"
)

func readBody(c echo.Context) ([]byte, error) {
	if c.Request().Body == nil {
		return nil, nil
	}

	return io.ReadAll(c.Request().Body)
}
