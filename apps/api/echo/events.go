package echoapi

import (
	"net/http"

	ics "github.com/arran4/golang-ical"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
)

const (
	defaultUpcomingLimit = 10
	calendarContentType  = "text/calendar; charset=utf-8"
)

type eventApi struct {
	svc  *event.Service
	auth *auth
	conf *core.Config
}

func registerEventAPI(g *echo.Group, a *auth, svc *event.Service, conf *core.Config) {
	api := eventApi{svc: svc, auth: a, conf: conf}
	admin := a.adminMiddleware()

	eg := g.Group("/events")

	// public endpoints; a token shows the events visible to its person
	eg.GET("", api.query, a.optional)
	eg.GET("/upcoming", api.upcoming, a.optional)
	eg.GET("/calendar.ics", api.calendar, a.optional)
	eg.GET("/types", api.queryTypes)
	eg.GET("/:id", api.retrieve, a.optional)

	// authed endpoints
	eg.POST("/:id/rsvps", api.rsvp, a.required)
	eg.DELETE("/:id/rsvps", api.cancelRsvp, a.required)

	// admin endpoints
	eg.POST("", api.create, a.required, admin)
	eg.PUT("/:id", api.update, a.required, admin)
	eg.DELETE("/:id", api.destroy, a.required, admin)
	eg.POST("/types", api.createType, a.required, admin)
	eg.POST("/:id/blocks", api.addBlock, a.required, admin)
	eg.DELETE("/:id/blocks/:block_id", api.deleteBlock, a.required, admin)
	eg.GET("/:id/rsvps", api.queryRsvps, a.required, admin)
	eg.POST("/:id/notify", api.notify, a.required, admin)
}

// Handlers

func (api *eventApi) query(ctx echo.Context) error {
	viewer, err := api.auth.viewer(ctx)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}

	scope := event.Scope(ctx.QueryParam("scope"))
	if scope == "" {
		scope = event.ScopeUpcoming
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.List(ctx.Request().Context(), scope, viewer, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) upcoming(ctx echo.Context) error {
	viewer, err := api.auth.viewer(ctx)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}

	limit := intQueryParam(ctx, "limit", defaultUpcomingLimit)
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}

	events, err := api.svc.Upcoming(ctx.Request().Context(), limit, viewer)
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

// calendar serves every scheduled event visible to the viewer as an iCalendar feed.
func (api *eventApi) calendar(ctx echo.Context) error {
	viewer, err := api.auth.viewer(ctx)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}

	events, err := api.svc.List(ctx.Request().Context(), event.ScopeAll, viewer, nil)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//" + api.conf.AppName + "//Events//EN")
	cal.SetXWRCalName(api.conf.AppName + " Events")
	for _, evt := range events {
		if !evt.StartTime.Valid {
			continue
		}
		ve := cal.AddEvent(evt.ID + "@" + api.conf.Server.Host)
		ve.SetCreatedTime(evt.CreatedAt)
		ve.SetDtStampTime(evt.UpdatedAt)
		ve.SetModifiedAt(evt.UpdatedAt)
		ve.SetStartAt(evt.StartTime.Time)
		if evt.EndTime.Valid {
			ve.SetEndAt(evt.EndTime.Time)
		}
		ve.SetSummary(evt.Name)
		ve.SetLocation(evt.Location)
		ve.SetDescription(evt.Description)
		ve.SetURL(api.conf.FrontendBaseURL + "/events/" + evt.ID)
	}
	return ctx.Blob(http.StatusOK, calendarContentType, []byte(cal.Serialize()))
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	viewer, err := api.auth.viewer(ctx)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}

	evt, err := api.svc.GetVisible(ctx.Request().Context(), ctx.Param("id"), viewer)
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	evt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) queryTypes(ctx echo.Context) error {
	types, err := api.svc.Types(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying event types")
	}
	if types == nil {
		types = []event.EventType{}
	}
	return ctx.JSON(http.StatusOK, types)
}

func (api *eventApi) createType(ctx echo.Context) error {
	var data event.NewEventType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEventType")
	}

	et, err := api.svc.CreateType(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event type")
	}
	return ctx.JSON(http.StatusCreated, et)
}

func (api *eventApi) addBlock(ctx echo.Context) error {
	var data event.NewBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}

	blk, err := api.svc.AddBlock(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding block")
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *eventApi) deleteBlock(ctx echo.Context) error {
	if err := api.svc.DeleteBlock(ctx.Request().Context(), ctx.Param("id"), ctx.Param("block_id")); err != nil {
		return errors.Wrap(err, "deleting block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) queryRsvps(ctx echo.Context) error {
	rsvps, err := api.svc.RSVPs(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying rsvps")
	}
	if rsvps == nil {
		rsvps = []event.RSVP{}
	}
	return ctx.JSON(http.StatusOK, rsvps)
}

func (api *eventApi) rsvp(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}

	var data event.NewRSVP
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRSVP")
	}

	rsvp, err := api.svc.CreateRSVP(ctx.Request().Context(), ctx.Param("id"), p, data)
	if err != nil {
		return errors.Wrap(err, "creating rsvp")
	}
	return ctx.JSON(http.StatusCreated, rsvp)
}

func (api *eventApi) cancelRsvp(ctx echo.Context) error {
	p, err := api.auth.currentPerson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}

	if err = api.svc.CancelRSVP(ctx.Request().Context(), ctx.Param("id"), p.ID); err != nil {
		return errors.Wrap(err, "cancelling rsvp")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// notify sends the RSVP reminders of an event right away.
// Partial delivery failures are reported but do not fail the request.
func (api *eventApi) notify(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	evt, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}

	resp := NotifyResponse{Failures: []string{}}
	if err = api.svc.NotifyRsvps(reqCtx, evt); err != nil {
		if errors.Is(err, event.ErrNotScheduled) {
			return err
		}
		for _, e := range multierr.Errors(err) {
			resp.Failures = append(resp.Failures, e.Error())
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

type NotifyResponse struct {
	Failures []string `json:"failures"`
}
