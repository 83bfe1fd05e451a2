// Package emailrecords declares the server-side repository contract for
// email verification records. Records hold a salted hash of the address,
// never the address itself.
package emailrecords

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts rec and returns the id assigned to it.
	Create(ctx context.Context, rec *models.EmailRecord) (int64, error)

	// Find returns the record with id and sets its last_accessed to at.
	// Unknown ids yield common.ErrorNotFound.
	Find(ctx context.Context, id int64, at time.Time) (*models.EmailRecord, error)

	// MarkVerified flags the record as confirmed.
	MarkVerified(ctx context.Context, id int64, at time.Time) error

	// DeleteStaleUnverified removes unverified records not accessed since
	// before and returns how many were removed.
	DeleteStaleUnverified(ctx context.Context, before time.Time) (int64, error)
}
