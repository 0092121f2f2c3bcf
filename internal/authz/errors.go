package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is the errors.Is target for PermissionDeniedError.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrModuleDisabled is returned when the tenant has not enabled the module
	// owning the requested resource.
	ErrModuleDisabled = errors.New("module disabled")
	// ErrTenantMismatch is returned when a request names a tenant other than
	// the one in the caller's token. The token is the source of truth.
	ErrTenantMismatch = errors.New("tenant mismatch")
)

// PermissionDeniedError reports which (resource, action) pair was denied, so
// clients can show what was attempted without a second round trip.
type PermissionDeniedError struct {
	Resource string
	Action   string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s on %s", e.Action, e.Resource)
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// DecisionError converts a denied Decision to its sentinel error. Allowed
// decisions return nil.
func DecisionError(d Decision) error {
	switch d.Reason {
	case DenyNone:
		return nil
	case DenyModuleDisabled:
		return ErrModuleDisabled
	default:
		return &PermissionDeniedError{Resource: d.Resource, Action: d.Action}
	}
}
