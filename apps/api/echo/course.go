package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses")

	// un-authed endpoint: the catalog backs the public landing page
	cg.GET("", api.query)

	// authed endpoints
	adm := cg.Group("", jwt, adminMiddleware())
	adm.POST("", api.create)
	adm.GET("/:id", api.retrieve)
	adm.PATCH("/:id/status", api.updateStatus)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.ListActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) updateStatus(ctx echo.Context) error {
	var data CourseStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseStatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

type CourseStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (cr *CourseStatusRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}
