package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/partner"
)

type partnerRepository struct {
	db  *partnerTable
	cms *commissionTable
	dsb *disbursementTable
}

// interface compliance checks
var (
	_ partner.Repository           = (*partnerRepository)(nil)
	_ application.PartnerDirectory = (*partnerRepository)(nil)
)

func NewPartnerRepository(db *DB) *partnerRepository {
	return &partnerRepository{db: db.partner, cms: db.commission, dsb: db.disbursement}
}

func (repo *partnerRepository) query() []partner.ReferralPartner {
	partners := make([]partner.ReferralPartner, 0, len(repo.db.table))
	for _, ptn := range repo.db.table {
		partners = append(partners, *ptn)
	}
	return partners
}

func (repo *partnerRepository) CreatePartner(ctx context.Context, ptn partner.ReferralPartner, _ ...core.DBExecutor) (partner.ReferralPartner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ptn.ID = uuid.New().String()
	repo.db.table[ptn.ID] = &ptn
	return ptn, nil
}

func (repo *partnerRepository) GetPartnerByID(ctx context.Context, id string, _ ...core.DBExecutor) (partner.ReferralPartner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ptn, ok := repo.db.table[id]; ok {
		return *ptn, nil
	}
	return partner.ReferralPartner{}, partner.ErrNotFound
}

func (repo *partnerRepository) GetPartnerByCode(ctx context.Context, code string, _ ...core.DBExecutor) (partner.ReferralPartner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ptn := range repo.db.table {
		if ptn.ReferralCode == code {
			return *ptn, nil
		}
	}
	return partner.ReferralPartner{}, partner.ErrNotFound
}

func (repo *partnerRepository) QueryPartners(ctx context.Context, filter *partner.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]partner.ReferralPartner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	partners := repo.query()
	if filter == nil {
		return partners, nil
	}

	if filter.Status != "" {
		var filtered []partner.ReferralPartner
		for _, ptn := range partners {
			if ptn.Status == filter.Status {
				filtered = append(filtered, ptn)
			}
		}
		partners = filtered
	}
	if filter.Type != "" {
		var filtered []partner.ReferralPartner
		for _, ptn := range partners {
			if ptn.Type == filter.Type {
				filtered = append(filtered, ptn)
			}
		}
		partners = filtered
	}
	if filter.IsApproved != nil {
		var filtered []partner.ReferralPartner
		for _, ptn := range partners {
			if ptn.IsApproved == *filter.IsApproved {
				filtered = append(filtered, ptn)
			}
		}
		partners = filtered
	}
	// partners with search keyword matching any name, email, referral code or institution name
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		var filtered []partner.ReferralPartner
		for _, ptn := range partners {
			if strings.Contains(strings.ToLower(ptn.Name), kw) ||
				strings.Contains(strings.ToLower(ptn.Email), kw) ||
				strings.Contains(strings.ToLower(ptn.ReferralCode), kw) ||
				strings.Contains(strings.ToLower(ptn.InstitutionName), kw) {
				filtered = append(filtered, ptn)
			}
		}
		partners = filtered
	}

	return partners, nil
}

func (repo *partnerRepository) UpdatePartnerStatus(ctx context.Context, id, status string, isApproved bool, updatedAt time.Time, _ ...core.DBExecutor) (partner.ReferralPartner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ptn, ok := repo.db.table[id]
	if !ok {
		return partner.ReferralPartner{}, partner.ErrNotFound
	}
	ptn.Status = status
	ptn.IsApproved = isApproved
	ptn.UpdatedAt = updatedAt.UTC()
	return *ptn, nil
}

func (repo *partnerRepository) ApplyCommissionDelta(ctx context.Context, id string, totalDelta, pendingDelta, paidDelta float64, updatedAt time.Time, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ptn, ok := repo.db.table[id]
	if !ok {
		return partner.ErrNotFound
	}
	if ptn.PendingCommission+pendingDelta < 0 {
		return partner.ErrInsufficientPending
	}
	ptn.TotalCommission += totalDelta
	ptn.PendingCommission += pendingDelta
	ptn.PaidCommission += paidDelta
	ptn.UpdatedAt = updatedAt.UTC()
	return nil
}

func (repo *partnerRepository) FindPartnerByCode(ctx context.Context, code string, _ ...core.DBExecutor) (application.PartnerRef, error) {
	ptn, err := repo.GetPartnerByCode(ctx, code)
	if err != nil {
		if errors.Cause(err) == partner.ErrNotFound {
			return application.PartnerRef{}, application.ErrPartnerNotFound
		}
		return application.PartnerRef{}, err
	}
	return application.PartnerRef{ID: ptn.ID, Type: ptn.Type, Code: ptn.ReferralCode}, nil
}

func (repo *partnerRepository) IncrementPartnerReferrals(ctx context.Context, partnerID string, confirmed bool, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ptn, ok := repo.db.table[partnerID]
	if !ok {
		return partner.ErrNotFound
	}
	if confirmed {
		ptn.ConfirmedReferrals++
	} else {
		ptn.TotalReferrals++
	}
	ptn.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *partnerRepository) CreateCommission(ctx context.Context, cms partner.Commission, _ ...core.DBExecutor) (partner.Commission, error) {
	repo.cms.Lock()
	defer repo.cms.Unlock()

	cms.ID = uuid.New().String()
	repo.cms.table[cms.ID] = &cms
	return cms, nil
}

func (repo *partnerRepository) GetCommissionByID(ctx context.Context, id string, _ ...core.DBExecutor) (partner.Commission, error) {
	repo.cms.RLock()
	defer repo.cms.RUnlock()

	if cms, ok := repo.cms.table[id]; ok {
		return *cms, nil
	}
	return partner.Commission{}, partner.ErrCommissionNotFound
}

func (repo *partnerRepository) QueryCommissions(ctx context.Context, filter partner.CommissionFilter, _ ...core.DBExecutor) ([]partner.Commission, error) {
	repo.cms.RLock()
	defer repo.cms.RUnlock()

	var commissions []partner.Commission
	for _, cms := range repo.cms.table {
		if filter.PartnerID != "" && cms.PartnerID != filter.PartnerID {
			continue
		}
		if filter.Status != "" && cms.Status != filter.Status {
			continue
		}
		commissions = append(commissions, *cms)
	}
	sort.Slice(commissions, func(i, j int) bool { return commissions[i].CreatedAt.Before(commissions[j].CreatedAt) })
	return commissions, nil
}

func (repo *partnerRepository) UpdateCommissionStatus(ctx context.Context, id, status string, paidAt *time.Time, _ ...core.DBExecutor) (partner.Commission, error) {
	repo.cms.Lock()
	defer repo.cms.Unlock()

	cms, ok := repo.cms.table[id]
	if !ok {
		return partner.Commission{}, partner.ErrCommissionNotFound
	}
	cms.Status = status
	cms.PaidAt = paidAt
	return *cms, nil
}

func (repo *partnerRepository) CreateDisbursement(ctx context.Context, dsb partner.Disbursement, _ ...core.DBExecutor) (partner.Disbursement, error) {
	repo.dsb.Lock()
	defer repo.dsb.Unlock()

	dsb.ID = uuid.New().String()
	repo.dsb.table[dsb.ID] = &dsb
	return dsb, nil
}

func (repo *partnerRepository) GetDisbursementByID(ctx context.Context, id string, _ ...core.DBExecutor) (partner.Disbursement, error) {
	repo.dsb.RLock()
	defer repo.dsb.RUnlock()

	if dsb, ok := repo.dsb.table[id]; ok {
		return *dsb, nil
	}
	return partner.Disbursement{}, partner.ErrDisbursementNotFound
}

func (repo *partnerRepository) QueryDisbursementsByPartner(ctx context.Context, partnerID string, _ ...core.DBExecutor) ([]partner.Disbursement, error) {
	repo.dsb.RLock()
	defer repo.dsb.RUnlock()

	var disbursements []partner.Disbursement
	for _, dsb := range repo.dsb.table {
		if dsb.PartnerID == partnerID {
			disbursements = append(disbursements, *dsb)
		}
	}
	sort.Slice(disbursements, func(i, j int) bool { return disbursements[i].CreatedAt.Before(disbursements[j].CreatedAt) })
	return disbursements, nil
}

func (repo *partnerRepository) UpdateDisbursementStatus(ctx context.Context, id, status string, completedAt *time.Time, _ ...core.DBExecutor) (partner.Disbursement, error) {
	repo.dsb.Lock()
	defer repo.dsb.Unlock()

	dsb, ok := repo.dsb.table[id]
	if !ok {
		return partner.Disbursement{}, partner.ErrDisbursementNotFound
	}
	dsb.Status = status
	dsb.CompletedAt = completedAt
	return *dsb, nil
}
