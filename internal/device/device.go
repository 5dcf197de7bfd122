package device

import (
	"github.com/google/uuid"

	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

// Device is one simulated household as seen from the outside: a stable
// configured id, a per-process run id and the service controllers talk to.
type Device struct {
	ID    string
	RunID uuid.UUID
	Svc   ports.HouseService
}

func New(id string, svc ports.HouseService) *Device {
	return &Device{ID: id, RunID: uuid.New(), Svc: svc}
}
