package repository

import (
	"context"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EdgeRepository stores the follow graph as two denormalized sets: each
// identity's following set and each identity's follower set.
type EdgeRepository interface {
	Follow(ctx context.Context, followerID, targetID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, targetID uint) (bool, error)
	State(ctx context.Context, followerID, targetID uint) (models.EdgeState, error)
	RepairPair(ctx context.Context, followerID, targetID uint) (models.EdgeState, error)
	Reconcile(ctx context.Context) (models.ReconcileReport, error)
	ListFollowers(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Identity, error)
	ListFollowing(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Identity, error)
	FollowingIDs(ctx context.Context, ownerID uint) ([]uint, error)
}

type edgeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(db *gorm.DB) EdgeRepository {
	return &edgeRepository{db: db, log: observability.NewRepoLogger("following_edges")}
}

// Follow writes both halves of the edge in one transaction. The mirror row is
// written even when the following row already existed, which heals a torn pair.
// It reports whether the following set changed.
func (r *edgeRepository) Follow(ctx context.Context, followerID, targetID uint) (bool, error) {
	created := false
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.FollowingEdge{OwnerID: followerID, TargetID: targetID, CreatedAt: now})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0

		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.FollowerEdge{OwnerID: targetID, FollowerID: followerID, CreatedAt: now}).Error
	})
	if err != nil {
		return false, mapError(err, "Identity", targetID)
	}
	if created {
		r.log.LogCreate(ctx, map[string]any{"follower_id": followerID, "target_id": targetID})
	}
	return created, nil
}

// Unfollow removes both halves in one transaction and reports whether the
// following set changed.
func (r *edgeRepository) Unfollow(ctx context.Context, followerID, targetID uint) (bool, error) {
	removed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND target_id = ?", followerID, targetID).Delete(&models.FollowingEdge{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0

		return tx.Where("owner_id = ? AND follower_id = ?", targetID, followerID).Delete(&models.FollowerEdge{}).Error
	})
	if err != nil {
		return false, mapError(err, "Identity", targetID)
	}
	if removed {
		r.log.LogDelete(ctx, map[string]any{"follower_id": followerID, "target_id": targetID})
	}
	return removed, nil
}

func (r *edgeRepository) State(ctx context.Context, followerID, targetID uint) (models.EdgeState, error) {
	return r.state(r.db.WithContext(ctx), followerID, targetID)
}

func (r *edgeRepository) state(db *gorm.DB, followerID, targetID uint) (models.EdgeState, error) {
	var state models.EdgeState
	var following, follower int64

	if err := db.Model(&models.FollowingEdge{}).
		Where("owner_id = ? AND target_id = ?", followerID, targetID).
		Count(&following).Error; err != nil {
		return state, mapError(err, "FollowingEdge", followerID)
	}
	if err := db.Model(&models.FollowerEdge{}).
		Where("owner_id = ? AND follower_id = ?", targetID, followerID).
		Count(&follower).Error; err != nil {
		return state, mapError(err, "FollowerEdge", targetID)
	}

	state.Following = following > 0
	state.Follower = follower > 0
	return state, nil
}

// RepairPair makes the follower set agree with the following set for one pair.
func (r *edgeRepository) RepairPair(ctx context.Context, followerID, targetID uint) (models.EdgeState, error) {
	var repaired models.EdgeState

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := r.state(tx, followerID, targetID)
		if err != nil {
			return err
		}
		if state.Symmetric() {
			repaired = state
			return nil
		}

		if state.Following {
			err = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.FollowerEdge{OwnerID: targetID, FollowerID: followerID, CreatedAt: time.Now().UTC()}).Error
			observability.EdgesRepaired.WithLabelValues("mirror_inserted").Inc()
		} else {
			err = tx.Where("owner_id = ? AND follower_id = ?", targetID, followerID).Delete(&models.FollowerEdge{}).Error
			observability.EdgesRepaired.WithLabelValues("orphan_removed").Inc()
		}
		if err != nil {
			return err
		}
		repaired = models.EdgeState{Following: state.Following, Follower: state.Following}
		return nil
	})
	if err != nil {
		return models.EdgeState{}, mapError(err, "FollowerEdge", targetID)
	}
	r.log.LogRepair(ctx, map[string]any{"follower_id": followerID, "target_id": targetID, "following": repaired.Following})
	return repaired, nil
}

const (
	insertMissingMirrorsSQL = `INSERT INTO follower_edges (owner_id, follower_id, created_at)
SELECT f.target_id, f.owner_id, f.created_at FROM following_edges f
WHERE NOT EXISTS (
	SELECT 1 FROM follower_edges r WHERE r.owner_id = f.target_id AND r.follower_id = f.owner_id
)`

	deleteOrphanMirrorsSQL = `DELETE FROM follower_edges
WHERE NOT EXISTS (
	SELECT 1 FROM following_edges f
	WHERE f.owner_id = follower_edges.follower_id AND f.target_id = follower_edges.owner_id
)`
)

// Reconcile repairs every asymmetric pair. The following set is authoritative.
func (r *edgeRepository) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	var report models.ReconcileReport

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(insertMissingMirrorsSQL)
		if res.Error != nil {
			return res.Error
		}
		report.MirrorsInserted = res.RowsAffected

		res = tx.Exec(deleteOrphanMirrorsSQL)
		if res.Error != nil {
			return res.Error
		}
		report.OrphansRemoved = res.RowsAffected
		return nil
	})
	if err != nil {
		return models.ReconcileReport{}, mapError(err, "FollowerEdge", "*")
	}

	if report.Repaired() > 0 {
		observability.EdgesRepaired.WithLabelValues("mirror_inserted").Add(float64(report.MirrorsInserted))
		observability.EdgesRepaired.WithLabelValues("orphan_removed").Add(float64(report.OrphansRemoved))
		r.log.LogRepair(ctx, map[string]any{
			"mirrors_inserted": report.MirrorsInserted,
			"orphans_removed":  report.OrphansRemoved,
		})
	}
	return report, nil
}

func (r *edgeRepository) ListFollowers(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Identity, error) {
	limit, offset = page(limit, offset)
	var identities []*models.Identity
	err := withCounts(r.db.WithContext(ctx).Model(&models.Identity{})).
		Joins("JOIN follower_edges ON follower_edges.follower_id = identities.id").
		Where("follower_edges.owner_id = ?", ownerID).
		Order("follower_edges.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&identities).Error
	if err != nil {
		return nil, mapError(err, "Identity", ownerID)
	}
	return identities, nil
}

func (r *edgeRepository) ListFollowing(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Identity, error) {
	limit, offset = page(limit, offset)
	var identities []*models.Identity
	err := withCounts(r.db.WithContext(ctx).Model(&models.Identity{})).
		Joins("JOIN following_edges ON following_edges.target_id = identities.id").
		Where("following_edges.owner_id = ?", ownerID).
		Order("following_edges.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&identities).Error
	if err != nil {
		return nil, mapError(err, "Identity", ownerID)
	}
	return identities, nil
}

func (r *edgeRepository) FollowingIDs(ctx context.Context, ownerID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.FollowingEdge{}).
		Where("owner_id = ?", ownerID).
		Pluck("target_id", &ids).Error; err != nil {
		return nil, mapError(err, "FollowingEdge", ownerID)
	}
	return ids, nil
}
