package domain

import (
	"encoding/json"
	"time"
)

// Audit action constants.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLoginFailed       = "LOGIN_FAILED"
	AuditActionRegister          = "REGISTER_ADMIN"
	AuditActionUpdateOrderStatus = "UPDATE_ORDER_STATUS"
	AuditActionCreateProduct     = "CREATE_PRODUCT"
	AuditActionUpdateProduct     = "UPDATE_PRODUCT"
	AuditActionDeleteProduct     = "DELETE_PRODUCT"
	AuditActionToggleUserStatus  = "TOGGLE_USER_STATUS"
	AuditActionDeleteUser        = "DELETE_USER"
	AuditActionEnableTwoFactor   = "ENABLE_2FA"
	AuditActionDisableTwoFactor  = "DISABLE_2FA"
)

// AuditEntry is an append-only record of an admin action. Writes are
// best-effort from the caller's perspective and never fail the operation
// they describe.
type AuditEntry struct {
	ID        int64           `json:"id"`
	AdminID   *int64          `json:"admin_id,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity,omitempty"`
	EntityID  *int64          `json:"entity_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
