package repositories

import (
	"relatorios/internal/docstore"
	"relatorios/internal/models"
)

// Enrich returns a copy of base stamped with the writer's tenant and audit
// fields. tenantId is always overwritten. Audit fields already present in
// base, under any recognized spelling, are left as given; missing timestamps
// are written under the canonical spelling as ServerTimestamp.
func Enrich(base models.Fields, uid, tenantID string, isCreate bool) models.Fields {
	payload := base.Clone()
	payload[models.FieldTenantID] = tenantID

	if isCreate {
		if !payload.HasAny(models.CreatedAtAliases) {
			payload[models.CreatedAtAliases[0]] = docstore.ServerTimestamp
		}
		if !payload.Has(models.FieldCreatedBy) {
			payload[models.FieldCreatedBy] = uid
		}
	}

	if !payload.HasAny(models.UpdatedAtAliases) {
		payload[models.UpdatedAtAliases[0]] = docstore.ServerTimestamp
	}
	if !payload.Has(models.FieldUpdatedBy) {
		payload[models.FieldUpdatedBy] = uid
	}
	return payload
}
