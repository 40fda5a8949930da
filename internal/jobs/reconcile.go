package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"gorm.io/gorm"
)

const (
	reconcileTimeout = 30 * time.Second

	// A claim that lost its delivery write reverts the parcel within one
	// request; anything still stuck after this long is not in flight.
	stuckClaimAge = time.Minute
)

// MismatchRow is a claimed delivery whose parcel status fell out of the
// fixed correspondence, usually after a lost mirror write.
type MismatchRow struct {
	DeliveryID     uint
	ParcelID       uint
	DeliveryStatus models.DeliveryStatus
	ParcelStatus   models.ParcelStatus
}

// SweepStore serves the reconciler's scans.
type SweepStore interface {
	// MismatchedDeliveries lists claimed deliveries whose parcel status
	// disagrees with the delivery status.
	MismatchedDeliveries(ctx context.Context) ([]MismatchRow, error)
	// StuckClaims lists parcels sitting in RIDER_ACCEPTED older than the
	// cutoff while no delivery row carries a rider: the leftover of a claim
	// whose compensation write failed.
	StuckClaims(ctx context.Context, cutoff time.Time) ([]uint, error)
}

// Reconciler repairs the two acknowledged inconsistency windows: a delivery
// write whose mirrored parcel write was lost, and a claimed parcel whose
// revert was lost after the delivery write failed. The delivery side is the
// source of truth, so repairs only ever touch the parcel.
type Reconciler struct {
	store   SweepStore
	parcels core.ParcelStore
	cache   core.Cache
}

func NewReconciler(store SweepStore, parcels core.ParcelStore, cache core.Cache) *Reconciler {
	return &Reconciler{store: store, parcels: parcels, cache: cache}
}

// Start schedules the sweep every minute and returns the cron handle so the
// caller can stop it on shutdown.
func (r *Reconciler) Start() *cron.Cron {
	c := cron.New()
	c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		if repaired, err := r.Sweep(ctx); err != nil {
			log.Printf("reconcile sweep failed: %v", err)
		} else if repaired > 0 {
			log.Printf("reconcile sweep repaired %d parcel(s)", repaired)
		}
	})
	c.Start()
	return c
}

// Sweep runs both repair passes and reports how many parcels were touched.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	repaired, err := r.repairMismatches(ctx)
	if err != nil {
		return repaired, err
	}

	released, err := r.releaseStuckClaims(ctx)
	repaired += released

	if repaired > 0 {
		r.cache.InvalidateAll(ctx)
	}
	return repaired, err
}

// repairMismatches rewrites parcels whose status drifted from their claimed
// delivery.
func (r *Reconciler) repairMismatches(ctx context.Context) (int, error) {
	rows, err := r.store.MismatchedDeliveries(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, row := range rows {
		want, ok := models.ParcelStatusFor(row.DeliveryStatus)
		if !ok {
			log.Printf("reconcile: delivery %d carries unknown status %d, skipping",
				row.DeliveryID, row.DeliveryStatus)
			continue
		}
		// Conditional on the observed value so a concurrent legitimate
		// transition is never clobbered.
		affected, err := r.parcels.CompareAndSetStatus(ctx, row.ParcelID, row.ParcelStatus, want)
		if err != nil {
			log.Printf("reconcile: failed to repair parcel %d: %v", row.ParcelID, err)
			continue
		}
		if affected > 0 {
			log.Printf("reconcile: parcel %d moved %s -> %s to match delivery %d",
				row.ParcelID, row.ParcelStatus.Label(), want.Label(), row.DeliveryID)
			repaired++
		}
	}
	return repaired, nil
}

// releaseStuckClaims reverts parcels stranded in RIDER_ACCEPTED by a claim
// whose compensation write failed, making them claimable again.
func (r *Reconciler) releaseStuckClaims(ctx context.Context) (int, error) {
	parcelIDs, err := r.store.StuckClaims(ctx, time.Now().Add(-stuckClaimAge))
	if err != nil {
		return 0, err
	}

	released := 0
	for _, parcelID := range parcelIDs {
		affected, err := r.parcels.CompareAndSetStatus(ctx, parcelID,
			models.ParcelRiderAccepted, models.ParcelWaitingForRider)
		if err != nil {
			log.Printf("reconcile: failed to release parcel %d: %v", parcelID, err)
			continue
		}
		if affected > 0 {
			log.Printf("reconcile: parcel %d released back to %s",
				parcelID, models.ParcelWaitingForRider.Label())
			released++
		}
	}
	return released, nil
}

// gormSweepStore runs the reconciler's scans against Postgres.
type gormSweepStore struct {
	db *gorm.DB
}

func NewSweepStore(db *gorm.DB) SweepStore {
	return &gormSweepStore{db: db}
}

func (s *gormSweepStore) MismatchedDeliveries(ctx context.Context) ([]MismatchRow, error) {
	var rows []MismatchRow
	// Unclaimed deliveries are skipped: a pending delivery with a null rider
	// legitimately pairs with a waiting parcel.
	err := s.db.WithContext(ctx).Raw(`
		SELECT d.id AS delivery_id, d.parcel_id, d.status AS delivery_status,
		       p.status AS parcel_status
		FROM deliveries d
		JOIN parcels p ON p.id = d.parcel_id
		WHERE d.rider_id IS NOT NULL
		  AND d.deleted_at IS NULL
		  AND p.deleted_at IS NULL
		  AND p.status <> d.status + 2
	`).Scan(&rows).Error
	return rows, err
}

func (s *gormSweepStore) StuckClaims(ctx context.Context, cutoff time.Time) ([]uint, error) {
	var parcelIDs []uint
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.id
		FROM parcels p
		WHERE p.status = ?
		  AND p.deleted_at IS NULL
		  AND p.updated_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM deliveries d
			WHERE d.parcel_id = p.id
			  AND d.deleted_at IS NULL
			  AND d.rider_id IS NOT NULL
		  )
	`, models.ParcelRiderAccepted, cutoff).Scan(&parcelIDs).Error
	return parcelIDs, err
}
