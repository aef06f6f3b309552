package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
)

type slotApi struct {
	svc *slot.Service
}

func registerSlotAPI(g *echo.Group, a *auth, svc *slot.Service) {
	api := slotApi{svc: svc}
	admin := a.adminMiddleware()

	sg := g.Group("/slots")

	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/tutors", api.queryTutors)
	sg.GET("/:id/availabilities", api.queryAvailabilities)

	// admin endpoints
	sg.POST("", api.create, a.required, admin)
	sg.PUT("/:id", api.update, a.required, admin)
	sg.DELETE("/:id", api.destroy, a.required, admin)
	sg.GET("/:id/history", api.history, a.required, admin)
	sg.POST("/:id/tutors", api.assign, a.required, admin)
	sg.DELETE("/:id/tutors/:tutor_id", api.unassign, a.required, admin)
}

type AssignRequest struct {
	TutorID string `json:"tutor_id"`
}

// Handlers

func (api *slotApi) query(ctx echo.Context) error {
	filter := new(slot.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []slot.Slot{})
	}

	slots, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying slots")
	}
	if slots == nil {
		slots = []slot.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *slotApi) retrieve(ctx echo.Context) error {
	slt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding slot")
	}
	return ctx.JSON(http.StatusOK, slt)
}

func (api *slotApi) create(ctx echo.Context) error {
	var data slot.NewSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}

	slt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating slot")
	}
	return ctx.JSON(http.StatusCreated, slt)
}

func (api *slotApi) update(ctx echo.Context) error {
	var data slot.UpdateSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSlot")
	}

	slt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating slot")
	}
	return ctx.JSON(http.StatusOK, slt)
}

func (api *slotApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting slot")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *slotApi) queryTutors(ctx echo.Context) error {
	tutors, err := api.svc.TutorsOf(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying slot tutors")
	}
	if tutors == nil {
		tutors = []person.Person{}
	}
	return ctx.JSON(http.StatusOK, tutors)
}

func (api *slotApi) queryAvailabilities(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	slt, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding slot")
	}

	avails, err := api.svc.AvailabilitiesFor(reqCtx, slt)
	if err != nil {
		return errors.Wrap(err, "querying availabilities")
	}
	if avails == nil {
		avails = []slot.Availability{}
	}
	return ctx.JSON(http.StatusOK, avails)
}

func (api *slotApi) history(ctx echo.Context) error {
	changes, err := api.svc.History(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying slot history")
	}
	if changes == nil {
		changes = []slot.SlotChange{}
	}
	return ctx.JSON(http.StatusOK, changes)
}

// assign answers 409 when the tutor already covers the same hour in the other room.
func (api *slotApi) assign(ctx echo.Context) error {
	var data AssignRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}

	reqCtx := ctx.Request().Context()
	if err := api.svc.AttemptAssign(reqCtx, ctx.Param("id"), data.TutorID); err != nil {
		return errors.Wrap(err, "assigning tutor")
	}

	tutors, err := api.svc.TutorsOf(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying slot tutors")
	}
	return ctx.JSON(http.StatusOK, tutors)
}

func (api *slotApi) unassign(ctx echo.Context) error {
	if err := api.svc.Unassign(ctx.Request().Context(), ctx.Param("id"), ctx.Param("tutor_id")); err != nil {
		return errors.Wrap(err, "unassigning tutor")
	}
	return ctx.NoContent(http.StatusNoContent)
}
