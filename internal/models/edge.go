package models

import "time"

// FollowingEdge is one entry of an identity's following set: OwnerID follows TargetID.
type FollowingEdge struct {
	OwnerID   uint      `gorm:"primaryKey;autoIncrement:false" json:"owner_id"`
	TargetID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (FollowingEdge) TableName() string {
	return "following_edges"
}

// FollowerEdge is one entry of an identity's follower set: FollowerID follows OwnerID.
// Every FollowingEdge{a, b} must have a mirror FollowerEdge{b, a}.
type FollowerEdge struct {
	OwnerID    uint      `gorm:"primaryKey;autoIncrement:false" json:"owner_id"`
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"follower_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (FollowerEdge) TableName() string {
	return "follower_edges"
}

// EdgeState describes both halves of a single follow relationship.
type EdgeState struct {
	Following bool
	Follower  bool
}

// Symmetric reports whether both denormalized sets agree.
func (s EdgeState) Symmetric() bool {
	return s.Following == s.Follower
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	MirrorsInserted int64 `json:"mirrors_inserted"`
	OrphansRemoved  int64 `json:"orphans_removed"`
}

// Repaired returns the total number of edges touched.
func (r ReconcileReport) Repaired() int64 {
	return r.MirrorsInserted + r.OrphansRemoved
}
