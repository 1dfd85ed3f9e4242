package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
)

type applicationApi struct {
	svc      *application.Service
	validate *validator.Validate
}

// columns admins may sort application listings by
var applicationSortFields = []string{
	"first_name", "last_name", "email", "age", "status", "referral_code",
	"referral_type", "amount", "payment_status", "created_at", "updated_at",
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := applicationApi{
		svc:      deps.ApplicationSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/applications")

	// un-authed endpoints
	ag.POST("", api.create)
	ag.GET("/:id/public", api.retrievePublic)

	// authed endpoints
	adm := ag.Group("", jwt, adminMiddleware())
	adm.GET("", api.query)
	adm.GET("/:id", api.retrieve)
	adm.PATCH("/:id/status", api.updateStatus)
}

// Handlers

func (api *applicationApi) create(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}

	app, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}

// retrievePublic serves the payment page: a reduced field set, no auth.
func (api *applicationApi) retrievePublic(ctx echo.Context) error {
	info, err := api.svc.GetPublicInfo(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *applicationApi) query(ctx echo.Context) error {
	filter := new(application.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []application.Application{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, applicationSortFields...)

	apps, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) updateStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (sr *StatusRequest) Validate(validate *validator.Validate) error {
	sr.Status = core.CleanString(sr.Status, true /* lower */)
	return validate.Struct(sr)
}
