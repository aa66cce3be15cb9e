package models

import "time"

// Audit is the creation and update stamp carried by every tenant record.
type Audit struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

var auditKeys = map[string]bool{
	FieldTenantID:    true,
	FieldCreatedAt:   true,
	FieldCreatedAtPT: true,
	FieldCreatedBy:   true,
	FieldUpdatedAt:   true,
	FieldUpdatedAtPT: true,
	FieldUpdatedBy:   true,
}

func auditFromFields(f Fields) Audit {
	var a Audit
	if v, ok := f.First(CreatedAtAliases); ok {
		a.CreatedAt = asTime(v)
	}
	if v, ok := f.First(UpdatedAtAliases); ok {
		a.UpdatedAt = asTime(v)
	}
	a.CreatedBy = f.String(FieldCreatedBy)
	a.UpdatedBy = f.String(FieldUpdatedBy)
	return a
}

// put writes the audit block under the canonical spellings, skipping zero values.
func (a Audit) put(f Fields) {
	if !a.CreatedAt.IsZero() {
		f[FieldCreatedAt] = a.CreatedAt
	}
	if a.CreatedBy != "" {
		f[FieldCreatedBy] = a.CreatedBy
	}
	if !a.UpdatedAt.IsZero() {
		f[FieldUpdatedAt] = a.UpdatedAt
	}
	if a.UpdatedBy != "" {
		f[FieldUpdatedBy] = a.UpdatedBy
	}
}
