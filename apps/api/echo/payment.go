package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core/payment"
)

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := paymentApi{
		svc:      deps.PaymentSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/payments")

	// un-authed endpoints: the payment page records an attempt and the
	// gateway posts status callbacks.
	pg.POST("", api.create)
	pg.POST("/:id/callback", api.callback)

	// authed endpoints
	adm := pg.Group("", jwt, adminMiddleware())
	adm.GET("/:id", api.retrieve)
	adm.GET("/application/:id", api.queryByApplication)
	adm.POST("/:id/confirm", api.confirm)
}

// Handlers

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}

	pmt, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) callback(ctx echo.Context) error {
	var data payment.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}

	pmt, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) queryByApplication(ctx echo.Context) error {
	pmts, err := api.svc.QueryByApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

// confirm is the manual admin fallback when a gateway callback was missed.
func (api *paymentApi) confirm(ctx echo.Context) error {
	var data ConfirmRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmRequest")
	}

	pmt, err := api.svc.Confirm(ctx.Request().Context(), ctx.Param("id"), data.TransactionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pmt)
}

type ConfirmRequest struct {
	TransactionID string `json:"transaction_id"`
}
