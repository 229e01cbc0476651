package models

import "time"

// Admin action types recorded in the log.
const (
	ActionDeletePost    = "delete_post"
	ActionPromoteUser   = "promote_user"
	ActionDemoteAdmin   = "demote_admin"
	ActionClearAllPosts = "clear_all_posts"
	ActionCleanupPosts  = "cleanup_corrupted_posts"
	ActionRestorePost   = "restore_post"
	ClearAllPostsTarget = "all"
	CleanupTargetPrefix = "removed_"
)

// AdminLog is one append-only record of an administrative action.
type AdminLog struct {
	ID         string    `json:"id,omitempty"`
	AdminEmail string    `json:"adminEmail"`
	ActionType string    `json:"actionType"`
	TargetID   string    `json:"targetId"`
	Timestamp  time.Time `json:"timestamp"`
}
