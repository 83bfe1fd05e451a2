package flights

import (
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
)

// Upgrader turns a decrypted payload stored in an older schema version into
// flights of the current in-memory shape.
type Upgrader interface {
	Upgrade(data []byte, version int32) ([]models.Flight, error)
}

// SchemaUpgrader reads every schema version models knows about.
type SchemaUpgrader struct{}

func (SchemaUpgrader) Upgrade(data []byte, version int32) ([]models.Flight, error) {
	return models.UnpackFlights(data, version)
}
