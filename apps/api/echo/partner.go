package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/partner"
)

type partnerApi struct {
	svc      *partner.Service
	validate *validator.Validate
}

// columns admins may sort partner listings by
var partnerSortFields = []string{
	"name", "type", "email", "referral_code", "status", "is_approved",
	"total_referrals", "confirmed_referrals", "total_commission",
	"paid_commission", "pending_commission", "created_at", "updated_at",
}

func registerPartnerAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := partnerApi{
		svc:      deps.PartnerSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/partners")

	// un-authed endpoints: self-registration and referral code lookup
	// (the application form checks codes as they are typed).
	pg.POST("", api.create)
	pg.GET("/code/:code", api.retrieveByCode)

	// authed endpoints
	adm := pg.Group("", jwt, adminMiddleware())
	adm.GET("", api.query)
	adm.GET("/:id", api.retrieve)
	adm.PATCH("/:id/status", api.updateStatus)
	adm.GET("/:id/commissions", api.queryCommissions)
	adm.GET("/:id/disbursements", api.queryDisbursements)

	cg := g.Group("/commissions", jwt, adminMiddleware())
	cg.POST("", api.createCommission)
	cg.GET("/pending", api.queryPendingCommissions)
	cg.PATCH("/:id/pay", api.markCommissionPaid)

	dg := g.Group("/disbursements", jwt, adminMiddleware())
	dg.POST("", api.createDisbursement)
	dg.PATCH("/:id/status", api.updateDisbursementStatus)
}

// Handlers

func (api *partnerApi) create(ctx echo.Context) error {
	var data partner.NewPartner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPartner")
	}

	ptn, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ptn)
}

// retrieveByCode only discloses whether a code resolves and who owns it;
// banking details and aggregates stay behind the admin endpoints.
func (api *partnerApi) retrieveByCode(ctx echo.Context) error {
	ptn, err := api.svc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CodeLookupResponse{
		ID:           ptn.ID,
		Name:         ptn.Name,
		Type:         ptn.Type,
		ReferralCode: ptn.ReferralCode,
		Status:       ptn.Status,
	})
}

func (api *partnerApi) query(ctx echo.Context) error {
	filter := new(partner.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []partner.ReferralPartner{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, partnerSortFields...)

	partners, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying partners")
	}
	if partners == nil {
		partners = []partner.ReferralPartner{}
	}
	return ctx.JSON(http.StatusOK, partners)
}

func (api *partnerApi) retrieve(ctx echo.Context) error {
	ptn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ptn)
}

func (api *partnerApi) updateStatus(ctx echo.Context) error {
	var data PartnerStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PartnerStatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ptn, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, data.IsApproved)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ptn)
}

func (api *partnerApi) queryCommissions(ctx echo.Context) error {
	commissions, err := api.svc.ListCommissionsByPartner(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying commissions")
	}
	if commissions == nil {
		commissions = []partner.Commission{}
	}
	return ctx.JSON(http.StatusOK, commissions)
}

func (api *partnerApi) queryDisbursements(ctx echo.Context) error {
	disbursements, err := api.svc.ListDisbursementsByPartner(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying disbursements")
	}
	if disbursements == nil {
		disbursements = []partner.Disbursement{}
	}
	return ctx.JSON(http.StatusOK, disbursements)
}

func (api *partnerApi) createCommission(ctx echo.Context) error {
	var data partner.NewCommission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommission")
	}

	cms, err := api.svc.RecordCommission(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cms)
}

func (api *partnerApi) queryPendingCommissions(ctx echo.Context) error {
	commissions, err := api.svc.ListPendingCommissions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending commissions")
	}
	if commissions == nil {
		commissions = []partner.Commission{}
	}
	return ctx.JSON(http.StatusOK, commissions)
}

func (api *partnerApi) markCommissionPaid(ctx echo.Context) error {
	cms, err := api.svc.MarkCommissionPaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cms)
}

func (api *partnerApi) createDisbursement(ctx echo.Context) error {
	var data partner.NewDisbursement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDisbursement")
	}

	dsb, err := api.svc.RecordDisbursement(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, dsb)
}

func (api *partnerApi) updateDisbursementStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dsb, err := api.svc.SetDisbursementStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dsb)
}

type (
	PartnerStatusRequest struct {
		Status     string `json:"status" validate:"required"`
		IsApproved bool   `json:"is_approved"`
	}

	// CodeLookupResponse is the public projection of a partner record.
	CodeLookupResponse struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		ReferralCode string `json:"referral_code"`
		Status       string `json:"status"`
	}
)

func (pr *PartnerStatusRequest) Validate(validate *validator.Validate) error {
	pr.Status = core.CleanString(pr.Status, true /* lower */)
	return validate.Struct(pr)
}
