package repositories

import (
	"context"

	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// ProductRepository is the transactional persistence gateway for products and
// their owned organizations. The domain layer owns this interface;
// infrastructure implements it.
//
// Every method is all-or-nothing: partial effects never survive an error.
// Callers must not mutate the in-memory collection unless the corresponding
// gateway call returned nil.
type ProductRepository interface {
	// LoadAll returns every product with its manufacturer joined in.
	// Used once at server start to seed the collection.
	LoadAll(ctx context.Context) ([]*models.Product, error)

	// Create persists p and, when present, its manufacturer in one
	// transaction. On success p.ID, p.CreationDate and p.Manufacturer.ID are
	// filled in from the database.
	Create(ctx context.Context, p *models.Product) error

	// Update rewrites the product row identified by p.ID owned by p.CreatorID.
	// The manufacturer diff is resolved inside the same transaction: an
	// existing owned organization is updated in place, a newly-introduced one
	// is inserted, and one dropped by the update is deleted.
	Update(ctx context.Context, p *models.Product) error

	// Delete removes the product and, when no other product references its
	// manufacturer, the manufacturer too (cascade-on-orphan), in one
	// transaction. Returns domain.ErrProductNotFound when id is absent.
	Delete(ctx context.Context, id int64) error

	// DeleteByCreator removes every product owned by creatorID plus any
	// organizations orphaned by that removal, in one transaction. Returns the
	// IDs of the deleted products.
	DeleteByCreator(ctx context.Context, creatorID int64) ([]int64, error)
}
