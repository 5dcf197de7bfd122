package device

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Agrid-Dev/housemocktat/internal/testutil"
)

func TestNewDevice(t *testing.T) {
	id := "test-id"
	svc := testutil.NewFakeHouseService()
	device := New(id, svc)

	if device.ID != id {
		t.Errorf("Expected device ID to be %s, got %s", id, device.ID)
	}
	if device.RunID == uuid.Nil {
		t.Error("Expected a non-nil run id")
	}
	if device.Svc != svc {
		t.Error("Expected the service to be kept")
	}
}

func TestRunIDsDiffer(t *testing.T) {
	a := New("a", testutil.NewFakeHouseService())
	b := New("a", testutil.NewFakeHouseService())
	if a.RunID == b.RunID {
		t.Errorf("Expected distinct run ids, got %s twice", a.RunID)
	}
}
