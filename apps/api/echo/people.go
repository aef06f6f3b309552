package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
)

type personApi struct {
	svc   *person.Service
	slots *slot.Service
	auth  *auth
}

func registerPersonAPI(g *echo.Group, a *auth, svc *person.Service, slots *slot.Service) {
	api := personApi{svc: svc, slots: slots, auth: a}
	admin := a.adminMiddleware()

	// authed endpoints
	pg := g.Group("/people", a.required)
	pg.GET("/me", api.retrieveMe)
	pg.PUT("/me", api.updateMe)
	pg.POST("/me/token-refresh", api.refreshToken)
	pg.GET("/me/slots", api.querySlots)
	pg.POST("/me/availabilities", api.addAvailability)

	pg.GET("/graduations", api.queryGraduations, a.groupMiddleware(a.conf.AdminGroup, a.conf.AlumniRelationsGroup))

	// admin endpoints
	pg.GET("", api.query, admin)
	pg.POST("", api.create, admin)
	pg.GET("/:id", api.retrieve, admin)
	pg.DELETE("/:id", api.destroy, admin)
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Handlers

func (api *personApi) retrieveMe(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *personApi) updateMe(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}

	var data person.UpdatePerson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePerson")
	}

	updated, err := api.svc.Update(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating person")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *personApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *personApi) querySlots(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}

	slots, err := api.slots.AssignmentsOf(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if slots == nil {
		slots = []slot.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *personApi) addAvailability(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}

	var data slot.NewAvailability
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAvailability")
	}
	data.PersonID = p.ID

	avail, err := api.slots.AddAvailability(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding availability")
	}
	return ctx.JSON(http.StatusOK, avail)
}

func (api *personApi) queryGraduations(ctx echo.Context) error {
	people, err := api.svc.Graduating(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying graduating people")
	}
	if people == nil {
		people = []person.Person{}
	}
	return ctx.JSON(http.StatusOK, people)
}

func (api *personApi) query(ctx echo.Context) error {
	var filter person.QueryFilter
	filter.GroupID = ctx.QueryParam("group_id")

	people, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying people")
	}
	if people == nil {
		people = []person.Person{}
	}
	return ctx.JSON(http.StatusOK, people)
}

func (api *personApi) create(ctx echo.Context) error {
	var data person.NewPerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPerson")
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating person")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *personApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding person")
	}
	return ctx.JSON(http.StatusOK, p)
}

// destroy refuses to let a person delete themselves.
func (api *personApi) destroy(ctx echo.Context) error {
	me, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}
	if me.ID == ctx.Param("id") {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting person")
	}
	return ctx.NoContent(http.StatusNoContent)
}
