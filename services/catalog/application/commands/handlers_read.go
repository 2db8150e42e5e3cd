package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// Read-only handlers. Each formats a snapshot (or an aggregate) outside
// writeMu; the store's own lock gives every call a consistent view.

func (r *Registry) runHead(_ context.Context, _ []string, _ *models.User) (string, error) {
	head := r.store.Min()
	if head == nil {
		return "collection is empty", nil
	}
	return head.String(), nil
}

func (r *Registry) runShow(_ context.Context, _ []string, _ *models.User) (string, error) {
	return formatProducts(r.store.Snapshot()), nil
}

// runPrintAscending formats the collection in its natural ascending order.
// The snapshot is already sorted by manufacture cost.
func (r *Registry) runPrintAscending(_ context.Context, _ []string, _ *models.User) (string, error) {
	return formatProducts(r.store.Snapshot()), nil
}

func (r *Registry) runPrintFieldAscendingPrice(_ context.Context, _ []string, _ *models.User) (string, error) {
	prices := r.store.AscendingPrices()
	if len(prices) == 0 {
		return "no products with a price", nil
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, "\n"), nil
}

func (r *Registry) runAverageOfManufactureCost(_ context.Context, _ []string, _ *models.User) (string, error) {
	return fmt.Sprintf("average manufacture cost: %g", r.store.AverageManufactureCost()), nil
}

func (r *Registry) runFilterByPrice(_ context.Context, args []string, _ *models.User) (string, error) {
	price, err := parsePositive("price", args[0])
	if err != nil {
		return "", err
	}
	matched := r.store.FilterByPrice(price)
	if len(matched) == 0 {
		return fmt.Sprintf("no products with price %d", price), nil
	}
	return formatProducts(matched), nil
}

func (r *Registry) runInfo(_ context.Context, _ []string, _ *models.User) (string, error) {
	initialized := "never"
	if t := r.store.InitializedAt(); !t.IsZero() {
		initialized = t.Format(time.RFC3339)
	}
	return fmt.Sprintf("type: sorted product collection\ninitialized: %s\nsize: %d",
		initialized, r.store.Len()), nil
}

func (r *Registry) runHistory(_ context.Context, _ []string, _ *models.User) (string, error) {
	items := r.history.Items()
	if len(items) == 0 {
		return "history is empty", nil
	}
	return strings.Join(items, "\n"), nil
}

func (r *Registry) runHelp(_ context.Context, _ []string, _ *models.User) (string, error) {
	var b strings.Builder
	b.WriteString("available commands:\n")
	for _, c := range r.Commands() {
		fmt.Fprintf(&b, "  %-28s %s\n", c.Name, c.Description)
	}
	b.WriteString("  register                     create an account (client-side)\n")
	b.WriteString("  login                        sign in (client-side)\n")
	b.WriteString("  exit                         close the client (client-side)")
	return b.String(), nil
}

func formatProducts(products []*models.Product) string {
	if len(products) == 0 {
		return "collection is empty"
	}
	parts := make([]string, len(products))
	for i, p := range products {
		parts[i] = p.String()
	}
	return strings.Join(parts, "\n")
}
