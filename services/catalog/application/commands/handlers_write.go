package commands

import (
	"context"
	"fmt"

	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// Mutating handlers. Each one commits to the persistence gateway first and
// touches the collection store only after the commit succeeded, all inside
// writeMu so no two mutations interleave.

func (r *Registry) runAdd(ctx context.Context, args []string, user *models.User) (string, error) {
	pa, err := parseProductArgs(args)
	if err != nil {
		return "", err
	}
	p, err := buildProduct(pa, user.ID)
	if err != nil {
		return "", err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.products.Create(ctx, p); err != nil {
		return "", err
	}
	r.store.Insert(p)
	r.log.InfoContext(ctx, "product added", "product_id", p.ID, "user", user.Username)
	return fmt.Sprintf("product %d added", p.ID), nil
}

func (r *Registry) runUpdate(ctx context.Context, args []string, user *models.User) (string, error) {
	id, err := parsePositive("id", args[0])
	if err != nil {
		return "", err
	}
	pa, err := parseProductArgs(args[1:])
	if err != nil {
		return "", err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	existing := r.store.ByID(id)
	if existing == nil {
		return "", domain.ErrProductNotFound
	}
	if existing.CreatorID != user.ID {
		return "", domain.ErrNotOwner
	}

	p, err := buildProduct(pa, user.ID)
	if err != nil {
		return "", err
	}
	p.ID = existing.ID
	p.CreationDate = existing.CreationDate

	if err := r.products.Update(ctx, p); err != nil {
		return "", err
	}
	r.store.Replace(p)
	r.log.InfoContext(ctx, "product updated", "product_id", p.ID, "user", user.Username)
	return fmt.Sprintf("product %d updated", p.ID), nil
}

func (r *Registry) runAddIfMin(ctx context.Context, args []string, user *models.User) (string, error) {
	pa, err := parseProductArgs(args)
	if err != nil {
		return "", err
	}
	p, err := buildProduct(pa, user.ID)
	if err != nil {
		return "", err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if min := r.store.Min(); min != nil && p.Compare(min) >= 0 {
		return "product is not smaller than the current minimum; nothing added", nil
	}
	if err := r.products.Create(ctx, p); err != nil {
		return "", err
	}
	r.store.Insert(p)
	r.log.InfoContext(ctx, "minimal product added", "product_id", p.ID, "user", user.Username)
	return fmt.Sprintf("product %d added as the new minimum", p.ID), nil
}

func (r *Registry) runRemoveByID(ctx context.Context, args []string, user *models.User) (string, error) {
	id, err := parsePositive("id", args[0])
	if err != nil {
		return "", err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	p := r.store.ByID(id)
	if p == nil {
		return "", domain.ErrProductNotFound
	}
	if p.CreatorID != user.ID {
		return "", domain.ErrNotOwner
	}
	if err := r.products.Delete(ctx, id); err != nil {
		return "", err
	}
	r.store.RemoveByID(id)
	r.log.InfoContext(ctx, "product removed", "product_id", id, "user", user.Username)
	return fmt.Sprintf("product %d removed", id), nil
}

func (r *Registry) runRemoveHead(ctx context.Context, _ []string, user *models.User) (string, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	head := r.store.Min()
	if head == nil {
		return "collection is empty; nothing removed", nil
	}
	if head.CreatorID != user.ID {
		return "head product belongs to another user; nothing removed", nil
	}
	if err := r.products.Delete(ctx, head.ID); err != nil {
		return "", err
	}
	r.store.RemoveByID(head.ID)
	r.log.InfoContext(ctx, "head product removed", "product_id", head.ID, "user", user.Username)
	return fmt.Sprintf("head product %d removed:\n%s", head.ID, head), nil
}

func (r *Registry) runClear(ctx context.Context, _ []string, user *models.User) (string, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deleted, err := r.products.DeleteByCreator(ctx, user.ID)
	if err != nil {
		return "", err
	}
	r.store.RemoveIf(func(p *models.Product) bool { return p.CreatorID == user.ID })
	r.log.InfoContext(ctx, "user products cleared", "count", len(deleted), "user", user.Username)
	return fmt.Sprintf("%d product(s) removed", len(deleted)), nil
}

// runSort forces a re-sort. Mutations keep the store sorted on their own, so
// this only matters as an explicit consistency check, but it still takes
// writeMu to avoid racing one.
func (r *Registry) runSort(ctx context.Context, _ []string, _ *models.User) (string, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.store.Resort()
	return "collection sorted by manufacture cost", nil
}
