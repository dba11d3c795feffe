package shared

import (
	"fmt"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// ErrInvalidCredentials indicates a failed sign-in. It maps to 401.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
