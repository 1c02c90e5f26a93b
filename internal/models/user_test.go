package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"operator role", RoleOperator, true},
		{"rider role", RoleRider, true},
		{"invalid role", "manager", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestClaims_HasPermission(t *testing.T) {
	admin := &Claims{Role: RoleAdmin}
	operator := &Claims{Role: RoleOperator}
	rider := &Claims{Role: RoleRider}

	tests := []struct {
		name     string
		claims   *Claims
		action   string
		expected bool
	}{
		// Admin permissions - should have all permissions
		{"admin can reset device", admin, ActionResetDevice, true},
		{"admin can view audit", admin, ActionViewAudit, true},
		{"admin can issue token", admin, ActionIssueToken, true},

		// Operator permissions - vehicle side only
		{"operator can report position", operator, ActionReportPosition, true},
		{"operator can issue token", operator, ActionIssueToken, true},
		{"operator can mark manual attendance", operator, ActionManualAttendance, true},
		{"operator can view manifest", operator, ActionViewManifest, true},
		{"operator cannot reset device", operator, ActionResetDevice, false},
		{"operator cannot scan as rider", operator, ActionMarkAttendance, false},

		// Rider permissions - boarding only
		{"rider can mark attendance", rider, ActionMarkAttendance, true},
		{"rider can view history", rider, ActionViewHistory, true},
		{"rider cannot mark manual attendance", rider, ActionManualAttendance, false},
		{"rider cannot report position", rider, ActionReportPosition, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.claims.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("Claims with role %s HasPermission(%s) = %v, want %v",
					tt.claims.Role, tt.action, result, tt.expected)
			}
		})
	}
}

func TestPrincipal(t *testing.T) {
	id := primitive.NewObjectID()

	rider := &Rider{ID: id, Name: "student1", VehicleID: "Bus-10"}
	p := rider.Principal()
	if p.ID != id.Hex() || p.Role != RoleRider || p.Username != "student1" {
		t.Errorf("unexpected rider principal: %+v", p)
	}

	user := &User{ID: id, Username: "driver", Role: RoleOperator, VehicleID: "Bus-10"}
	p = user.Principal()
	if p.Role != RoleOperator || p.VehicleID != "Bus-10" {
		t.Errorf("unexpected user principal: %+v", p)
	}
}

func TestRider_GuardianContact(t *testing.T) {
	r := &Rider{GuardianEmail: "parent@example.com", GuardianPhone: "9876543210"}
	if got := r.GuardianContact(); got != "9876543210" {
		t.Errorf("expected phone, got %s", got)
	}
	r.GuardianPhone = ""
	if got := r.GuardianContact(); got != "parent@example.com" {
		t.Errorf("expected email fallback, got %s", got)
	}
}
