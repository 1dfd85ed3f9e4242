package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akademyx/admissions/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := analyticsApi{svc: deps.AnalyticsSvc}

	ag := g.Group("/analytics", jwt, adminMiddleware())
	ag.GET("/dashboard", api.dashboard)
	ag.GET("/partners/:id", api.partnerStats)
}

// Handlers

func (api *analyticsApi) dashboard(ctx echo.Context) error {
	d, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *analyticsApi) partnerStats(ctx echo.Context) error {
	stats, err := api.svc.Partner(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}
