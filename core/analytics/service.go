// Package analytics computes the dashboard and partner aggregates by folding
// over full collection scans. Fine at a few thousand records; a materialized
// view would be needed beyond that.
package analytics

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/partner"
)

type (
	ApplicationReader interface {
		QueryApplications(ctx context.Context, filter *application.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]application.Application, error)
	}

	PartnerReader interface {
		GetPartnerByID(ctx context.Context, id string, exec ...core.DBExecutor) (partner.ReferralPartner, error)
		QueryPartners(ctx context.Context, filter *partner.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]partner.ReferralPartner, error)
		QueryCommissions(ctx context.Context, filter partner.CommissionFilter, exec ...core.DBExecutor) ([]partner.Commission, error)
	}

	Service struct {
		apps     ApplicationReader
		partners PartnerReader
	}
)

type Dashboard struct {
	TotalApplications     int     `json:"total_applications"`
	PendingApplications   int     `json:"pending_applications"`
	ApprovedApplications  int     `json:"approved_applications"`
	TotalRevenue          float64 `json:"total_revenue"`
	TotalCommissions      float64 `json:"total_commissions"`
	PaidCommissions       float64 `json:"paid_commissions"`
	PendingCommissions    float64 `json:"pending_commissions"`
	TotalReferralPartners int     `json:"total_referral_partners"`
	ActiveReferralPartner int     `json:"active_referral_partners"`
	ConversionRate        float64 `json:"conversion_rate"`
}

type PartnerStats struct {
	TotalReferrals     int     `json:"total_referrals"`
	ConfirmedReferrals int     `json:"confirmed_referrals"`
	TotalCommission    float64 `json:"total_commission"`
	PaidCommission     float64 `json:"paid_commission"`
	PendingCommission  float64 `json:"pending_commission"`
	ConversionRate     float64 `json:"conversion_rate"`
}

func NewService(apps ApplicationReader, partners PartnerReader) *Service {
	return &Service{apps: apps, partners: partners}
}

// Dashboard folds the whole applications, partners and commissions
// collections into the admin dashboard counters. "Approved" counts both
// approved and paid applications; revenue only counts paid ones.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	apps, err := svc.apps.QueryApplications(ctx, nil, nil)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying applications")
	}
	partners, err := svc.partners.QueryPartners(ctx, nil, nil)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying partners")
	}
	commissions, err := svc.partners.QueryCommissions(ctx, partner.CommissionFilter{})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying commissions")
	}

	var d Dashboard
	d.TotalApplications = len(apps)
	for _, app := range apps {
		switch app.Status {
		case application.StatusPending:
			d.PendingApplications++
		case application.StatusApproved:
			d.ApprovedApplications++
		case application.StatusPaid:
			d.ApprovedApplications++
			d.TotalRevenue += app.Amount
		}
	}

	for _, cms := range commissions {
		d.TotalCommissions += cms.Amount
		if cms.Status == partner.CommissionPaid {
			d.PaidCommissions += cms.Amount
		}
	}
	d.PendingCommissions = d.TotalCommissions - d.PaidCommissions

	d.TotalReferralPartners = len(partners)
	for _, ptn := range partners {
		if ptn.Status == partner.StatusActive {
			d.ActiveReferralPartner++
		}
	}

	d.ConversionRate = rate(d.ApprovedApplications, d.TotalApplications)
	return d, nil
}

// Partner recomputes a partner's referral counts from the applications
// carrying their code (paid = confirmed) and reads the stored money
// aggregates off the partner record.
func (svc *Service) Partner(ctx context.Context, partnerID string) (PartnerStats, error) {
	ptn, err := svc.partners.GetPartnerByID(ctx, partnerID)
	if err != nil {
		return PartnerStats{}, err
	}

	apps, err := svc.apps.QueryApplications(ctx, &application.QueryFilter{ReferralCode: ptn.ReferralCode}, nil)
	if err != nil {
		return PartnerStats{}, errors.Wrap(err, "querying referred applications")
	}

	stats := PartnerStats{
		TotalReferrals:    len(apps),
		TotalCommission:   ptn.TotalCommission,
		PaidCommission:    ptn.PaidCommission,
		PendingCommission: ptn.PendingCommission,
	}
	for _, app := range apps {
		if app.Status == application.StatusPaid {
			stats.ConfirmedReferrals++
		}
	}
	stats.ConversionRate = rate(stats.ConfirmedReferrals, stats.TotalReferrals)
	return stats, nil
}

// rate returns num/den as a percentage rounded to one decimal.
func rate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*1000) / 10
}
