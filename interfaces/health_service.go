package interfaces

import (
	"context"

	"ppn/types"
)

type HealthService interface {
	Check(ctx context.Context) (*types.HealthStatus, error)
}
