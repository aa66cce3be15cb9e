package common

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTenant is matched by every MissingTenantError.
	ErrMissingTenant = errors.New("missing tenant context")
	// ErrInvalidDate is returned for list date bounds not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidHour is returned for list hour bounds not in HH:MM form.
	ErrInvalidHour = errors.New("invalid hour")
)

// MissingTenantError reports claims that resolved without a tenant identifier.
// It indicates a provisioning problem and must not be retried.
type MissingTenantError struct {
	UID string
}

func (e *MissingTenantError) Error() string {
	if e.UID == "" {
		return "cannot proceed without tenant context: claims carry no tenantId"
	}
	return fmt.Sprintf("cannot proceed without tenant context: claims of user %s carry no tenantId", e.UID)
}

func (e *MissingTenantError) Is(target error) bool {
	return target == ErrMissingTenant
}

// TenantContextError wraps any failure to resolve the caller's tenant context.
type TenantContextError struct {
	Err error
}

func (e *TenantContextError) Error() string {
	return fmt.Sprintf("tenant context: %v", e.Err)
}

func (e *TenantContextError) Unwrap() error {
	return e.Err
}
