package models

// PermissionReport is the outcome of a create/read/update/delete smoke test run
// against the tenant's orders collection.
type PermissionReport struct {
	TenantID  string `json:"tenantId"`
	Role      string `json:"role"`
	TestDocID string `json:"testDocId,omitempty"`
	Create    bool   `json:"create"`
	Read      bool   `json:"read"`
	Update    bool   `json:"update"`
	Delete    bool   `json:"delete"`
	Error     string `json:"error,omitempty"`
}

// OK reports whether every step succeeded.
func (r *PermissionReport) OK() bool {
	return r.Create && r.Read && r.Update && r.Delete && r.Error == ""
}
