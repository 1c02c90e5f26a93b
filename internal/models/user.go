package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleRider    Role = "rider"
)

// Actions checked by HasPermission.
const (
	ActionMarkAttendance   = "mark_attendance"
	ActionViewHistory      = "view_history"
	ActionManualAttendance = "manual_attendance"
	ActionReportPosition   = "report_position"
	ActionIssueToken       = "issue_token"
	ActionViewManifest     = "view_manifest"
	ActionResetDevice      = "reset_device"
	ActionManageRiders     = "manage_riders"
	ActionViewAudit        = "view_audit"
	ActionViewPositions    = "view_positions"
)

// User represents a staff account (vehicle operator or administrator)
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	VehicleID    string             `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Principal returns the identity carried in the user's session token.
func (u *User) Principal() Principal {
	return Principal{
		ID:        u.ID.Hex(),
		Username:  u.Username,
		Role:      u.Role,
		VehicleID: u.VehicleID,
	}
}

// Principal is an authenticated identity, independent of where it is stored.
type Principal struct {
	ID        string
	Username  string
	Role      Role
	VehicleID string
}

// User types accepted by LoginRequest.
const (
	UserTypeRider = "rider"
	UserTypeStaff = "staff"
)

// LoginRequest represents a login request
type LoginRequest struct {
	UserType string `json:"user_type"`
	Username string `json:"username"`
	Password string `json:"password"`
	// DeviceID is optional and only checked for riders.
	DeviceID string `json:"device_id,omitempty"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token     string `json:"token"`
	Role      Role   `json:"role"`
	Username  string `json:"username"`
	VehicleID string `json:"vehicle_id,omitempty"`
}

// Claims represents JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	VehicleID string `json:"vehicle_id,omitempty"`
	Exp       int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleRider:
		return true
	default:
		return false
	}
}

// IsStaffRole reports whether the role belongs to a staff account.
func IsStaffRole(role Role) bool {
	return role == RoleAdmin || role == RoleOperator
}

// HasPermission checks if a role has permission for a specific action
func (c *Claims) HasPermission(action string) bool {
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleOperator:
		return action == ActionManualAttendance || action == ActionReportPosition ||
			action == ActionIssueToken || action == ActionViewManifest
	case RoleRider:
		return action == ActionMarkAttendance || action == ActionViewHistory
	default:
		return false
	}
}
