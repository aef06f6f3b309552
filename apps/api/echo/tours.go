package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core/tour"
)

type tourApi struct {
	svc *tour.Service
}

func registerTourAPI(g *echo.Group, svc *tour.Service) {
	api := tourApi{svc: svc}

	// un-authed endpoints
	// TODO: rate limit `/tours` per client IP
	g.POST("/tours", api.request)
}

type SuccessResponse struct {
	Success string `json:"success"`
}

func (api *tourApi) request(ctx echo.Context) error {
	var data tour.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to tour.Request")
	}

	if err := api.svc.Request(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "requesting tour")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your tour request has been sent. We will contact you shortly."})
}
