// Package postgres implements the catalog persistence gateway. All
// multi-entity work runs through database.WithTx so a backend failure can
// never leave a product without its organization or vice versa. The orphan
// check on delete is application SQL on purpose: "no other referencer" is a
// business rule, not a structural constraint, so it does not ride on FK
// cascade triggers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/prodvault/pkg/database"
	pkgevents "github.com/ghuser/prodvault/pkg/events"
	"github.com/ghuser/prodvault/services/catalog/domain"
	domainevents "github.com/ghuser/prodvault/services/catalog/domain/events"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

const selectProducts = `
	SELECT p.id, p.name, p.coordinates_x, p.coordinates_y, p.creation_date,
	       p.price, p.part_number, p.manufacture_cost, p.unit_of_measure, p.creator_id,
	       o.id, o.name, o.full_name, o.employees_count, o.creator_id
	FROM products p
	LEFT JOIN organizations o ON p.manufacturer_id = o.id`

// ProductRepository implements repositories.ProductRepository against
// PostgreSQL. Lifecycle events are published through the event bus inside the
// same transaction as the row changes (outbox pattern); bus may be nil, in
// which case no events are emitted.
type ProductRepository struct {
	db  *database.Database
	bus *pkgevents.EventBus
}

// NewProductRepository returns a ProductRepository backed by the given pool
// and event bus.
func NewProductRepository(db *database.Database, bus *pkgevents.EventBus) *ProductRepository {
	return &ProductRepository{db: db, bus: bus}
}

// LoadAll returns every product with its manufacturer joined in.
func (r *ProductRepository) LoadAll(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.db.DB().QueryContext(ctx, selectProducts)
	if err != nil {
		return nil, persistenceErr("load products", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, persistenceErr("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate products", err)
	}
	return out, nil
}

// Create persists p (and its manufacturer, when present) in one transaction
// and fills in the database-assigned IDs and creation date.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var manufacturerID sql.NullInt64
		if p.Manufacturer != nil {
			id, err := insertOrganization(ctx, tx, p.Manufacturer)
			if err != nil {
				return err
			}
			p.Manufacturer.ID = id
			manufacturerID = sql.NullInt64{Int64: id, Valid: true}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO products (name, coordinates_x, coordinates_y, price, part_number,
			                      manufacture_cost, unit_of_measure, manufacturer_id, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, creation_date`,
			p.Name, p.Coordinates.X, p.Coordinates.Y, nullInt64(p.Price), p.PartNumber,
			nullFloat32(p.ManufactureCost), string(p.Unit), manufacturerID, p.CreatorID,
		).Scan(&p.ID, &p.CreationDate)
		if err != nil {
			return mapUniqueViolation("insert product", err)
		}

		return r.publish(tx, domainevents.TopicProductCreated, domainevents.ProductCreatedEvent{
			EventID:    uuid.New(),
			Version:    1,
			ProductID:  p.ID,
			Name:       p.Name,
			PartNumber: p.PartNumber,
			CreatorID:  p.CreatorID,
			OccurredAt: p.CreationDate,
		})
	})
}

// Update rewrites the product row owned by p.CreatorID and resolves the
// manufacturer diff inside the same transaction.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var oldManufacturerID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT manufacturer_id FROM products WHERE id = $1 AND creator_id = $2`,
			p.ID, p.CreatorID,
		).Scan(&oldManufacturerID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return persistenceErr("query product for update", err)
		}

		var newManufacturerID sql.NullInt64
		switch {
		case p.Manufacturer != nil && oldManufacturerID.Valid:
			// Rewrite the existing owned organization in place.
			if _, err := tx.ExecContext(ctx,
				`UPDATE organizations SET name = $1, full_name = $2, employees_count = $3 WHERE id = $4`,
				p.Manufacturer.Name, p.Manufacturer.FullName, p.Manufacturer.EmployeesCount,
				oldManufacturerID.Int64,
			); err != nil {
				return mapUniqueViolation("update organization", err)
			}
			p.Manufacturer.ID = oldManufacturerID.Int64
			newManufacturerID = oldManufacturerID
		case p.Manufacturer != nil:
			id, err := insertOrganization(ctx, tx, p.Manufacturer)
			if err != nil {
				return err
			}
			p.Manufacturer.ID = id
			newManufacturerID = sql.NullInt64{Int64: id, Valid: true}
		case oldManufacturerID.Valid:
			// Manufacturer dropped by the update. Detach first so the FK allows
			// the delete, then remove the organization unless another product
			// still references it.
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET manufacturer_id = NULL WHERE id = $1`, p.ID,
			); err != nil {
				return persistenceErr("detach organization", err)
			}
			var referencers int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM products WHERE manufacturer_id = $1`, oldManufacturerID.Int64,
			).Scan(&referencers); err != nil {
				return persistenceErr("count organization referencers", err)
			}
			if referencers == 0 {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM organizations WHERE id = $1`, oldManufacturerID.Int64,
				); err != nil {
					return persistenceErr("delete organization", err)
				}
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET name = $1, coordinates_x = $2, coordinates_y = $3, price = $4,
			       part_number = $5, manufacture_cost = $6, unit_of_measure = $7, manufacturer_id = $8
			WHERE id = $9 AND creator_id = $10`,
			p.Name, p.Coordinates.X, p.Coordinates.Y, nullInt64(p.Price), p.PartNumber,
			nullFloat32(p.ManufactureCost), string(p.Unit), newManufacturerID, p.ID, p.CreatorID,
		)
		if err != nil {
			return mapUniqueViolation("update product", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrProductNotFound
		}

		return r.publish(tx, domainevents.TopicProductUpdated, domainevents.ProductUpdatedEvent{
			EventID:    uuid.New(),
			Version:    1,
			ProductID:  p.ID,
			Name:       p.Name,
			CreatorID:  p.CreatorID,
			OccurredAt: time.Now().UTC(),
		})
	})
}

// Delete removes the product and cascades to its organization when no other
// product still references it.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var manufacturerID sql.NullInt64
		var creatorID int64
		err := tx.QueryRowContext(ctx,
			`SELECT manufacturer_id, creator_id FROM products WHERE id = $1`, id,
		).Scan(&manufacturerID, &creatorID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return persistenceErr("query product for delete", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return persistenceErr("delete product", err)
		}

		orphaned := false
		if manufacturerID.Valid {
			var referencers int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM products WHERE manufacturer_id = $1`, manufacturerID.Int64,
			).Scan(&referencers)
			if err != nil {
				return persistenceErr("count organization referencers", err)
			}
			if referencers == 0 {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM organizations WHERE id = $1`, manufacturerID.Int64,
				); err != nil {
					return persistenceErr("delete orphaned organization", err)
				}
				orphaned = true
			}
		}

		return r.publish(tx, domainevents.TopicProductDeleted, domainevents.ProductDeletedEvent{
			EventID:     uuid.New(),
			Version:     1,
			ProductID:   id,
			CreatorID:   creatorID,
			OrphanedOrg: orphaned,
			OccurredAt:  time.Now().UTC(),
		})
	})
}

// DeleteByCreator removes every product owned by creatorID plus any
// organizations orphaned by that removal.
func (r *ProductRepository) DeleteByCreator(ctx context.Context, creatorID int64) ([]int64, error) {
	var deleted []int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`DELETE FROM products WHERE creator_id = $1 RETURNING id`, creatorID)
		if err != nil {
			return persistenceErr("delete products by creator", err)
		}
		defer rows.Close() //nolint:errcheck
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return persistenceErr("scan deleted id", err)
			}
			deleted = append(deleted, id)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("iterate deleted ids", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM organizations o
			WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.manufacturer_id = o.id)`,
		); err != nil {
			return persistenceErr("delete orphaned organizations", err)
		}

		for _, id := range deleted {
			if err := r.publish(tx, domainevents.TopicProductDeleted, domainevents.ProductDeletedEvent{
				EventID:    uuid.New(),
				Version:    1,
				ProductID:  id,
				CreatorID:  creatorID,
				OccurredAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func insertOrganization(ctx context.Context, tx *sql.Tx, org *models.Organization) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO organizations (name, full_name, employees_count, creator_id)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		org.Name, org.FullName, org.EmployeesCount, org.CreatorID,
	).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation("insert organization", err)
	}
	return id, nil
}

// publish writes event to the outbox inside tx so the event commits or rolls
// back with the row changes.
func (r *ProductRepository) publish(tx *sql.Tx, topic string, event any) error {
	if r.bus == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_version", "1")
	pub, err := r.bus.NewTxPublisher(tx)
	if err != nil {
		return persistenceErr("create tx publisher", err)
	}
	if err := pub.Publish(topic, msg); err != nil {
		return persistenceErr("publish event", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanProduct.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*models.Product, error) {
	var (
		p            models.Product
		price        sql.NullInt64
		cost         sql.NullFloat64
		unit         string
		orgID        sql.NullInt64
		orgName      sql.NullString
		orgFullName  sql.NullString
		orgEmployees sql.NullInt64
		orgCreator   sql.NullInt64
	)
	err := s.Scan(
		&p.ID, &p.Name, &p.Coordinates.X, &p.Coordinates.Y, &p.CreationDate,
		&price, &p.PartNumber, &cost, &unit, &p.CreatorID,
		&orgID, &orgName, &orgFullName, &orgEmployees, &orgCreator,
	)
	if err != nil {
		return nil, err
	}
	p.Unit = models.UnitOfMeasure(unit)
	if price.Valid {
		v := price.Int64
		p.Price = &v
	}
	if cost.Valid {
		v := float32(cost.Float64)
		p.ManufactureCost = &v
	}
	if orgID.Valid {
		p.Manufacturer = &models.Organization{
			ID:             orgID.Int64,
			Name:           orgName.String,
			FullName:       orgFullName.String,
			EmployeesCount: orgEmployees.Int64,
			CreatorID:      orgCreator.Int64,
		}
	}
	return &p, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat32(v *float32) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(*v), Valid: true}
}

// mapUniqueViolation converts PostgreSQL unique violations (23505) into the
// matching domain sentinel; everything else becomes a persistence failure.
func mapUniqueViolation(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "products_part_number_key":
			return domain.ErrPartNumberTaken
		case "organizations_full_name_key":
			return domain.ErrOrganizationNameTaken
		}
	}
	return persistenceErr(op, err)
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
