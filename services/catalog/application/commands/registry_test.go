package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/services/catalog/application/collection"
	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// fakeRepo is an in-memory ProductRepository standing in for the Postgres
// gateway. Error fields force the next matching call to fail so tests can
// prove the store stays untouched on gateway failure. Organizations are
// reference-counted the way the SQL gateway counts referencing products, so
// cascade-on-orphan behavior is observable: an organization with the same
// full name is shared, and removing its last referencer removes it.
type fakeRepo struct {
	mu        sync.Mutex
	nextID    int64
	createErr error
	updateErr error
	deleteErr error
	creators  map[int64]int64

	productOrg map[int64]int64  // product id → organization id
	orgNames   map[int64]string // organization id → full name
	orgIDs     map[string]int64 // organization full name → id
	orgRefs    map[int64]int    // organization id → referencing products
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		creators:   make(map[int64]int64),
		productOrg: make(map[int64]int64),
		orgNames:   make(map[int64]string),
		orgIDs:     make(map[string]int64),
		orgRefs:    make(map[int64]int),
	}
}

func (f *fakeRepo) LoadAll(context.Context) ([]*models.Product, error) { return nil, nil }

func (f *fakeRepo) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	p.ID = f.nextID
	p.CreationDate = time.Now()
	if p.Manufacturer != nil {
		orgID, ok := f.orgIDs[p.Manufacturer.FullName]
		if !ok {
			f.nextID++
			orgID = f.nextID
			f.orgIDs[p.Manufacturer.FullName] = orgID
			f.orgNames[orgID] = p.Manufacturer.FullName
		}
		p.Manufacturer.ID = orgID
		f.orgRefs[orgID]++
		f.productOrg[p.ID] = orgID
	}
	f.creators[p.ID] = p.CreatorID
	return nil
}

func (f *fakeRepo) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.creators[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.creators[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(f.creators, id)
	f.dropOrgRefLocked(id)
	return nil
}

func (f *fakeRepo) DeleteByCreator(_ context.Context, creatorID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	var deleted []int64
	for id, creator := range f.creators {
		if creator == creatorID {
			deleted = append(deleted, id)
			delete(f.creators, id)
			f.dropOrgRefLocked(id)
		}
	}
	return deleted, nil
}

// dropOrgRefLocked releases the deleted product's organization reference and
// removes the organization once no product references it.
func (f *fakeRepo) dropOrgRefLocked(productID int64) {
	orgID, ok := f.productOrg[productID]
	if !ok {
		return
	}
	delete(f.productOrg, productID)
	f.orgRefs[orgID]--
	if f.orgRefs[orgID] <= 0 {
		delete(f.orgIDs, f.orgNames[orgID])
		delete(f.orgNames, orgID)
		delete(f.orgRefs, orgID)
	}
}

func (f *fakeRepo) organizationExists(fullName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.orgIDs[fullName]
	return ok
}

func newTestRegistry(t *testing.T) (*Registry, *fakeRepo, *collection.Store) {
	t.Helper()
	store := collection.NewStore()
	repo := newFakeRepo()
	return NewRegistry(store, repo, logger.NewNop(), nil), repo, store
}

var alice = &models.User{ID: 1, Username: "alice", PasswordHash: models.HashPassword("pw")}
var bob = &models.User{ID: 2, Username: "bob", PasswordHash: models.HashPassword("pw")}

// addArgs builds the 10 positional add arguments with the given cost ("-" for
// absent) and part number.
func addArgs(cost, partNumber string) []string {
	return []string{"widget", "10", "2.5", "100", partNumber, cost, "grams", "-", "-", "-"}
}

func TestExecuteDispatch(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	t.Run("unknown command", func(t *testing.T) {
		_, err := r.Execute(ctx, "frobnicate", nil, alice)
		if !errors.Is(err, domain.ErrUnknownCommand) {
			t.Fatalf("got %v, want ErrUnknownCommand", err)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		if _, err := r.Execute(ctx, "HELP", nil, alice); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := r.Execute(ctx, "remove_by_id", nil, alice)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts after gateway commit", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		out, err := r.Execute(ctx, "add", addArgs("3.5", "PN-1"), alice)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if store.Len() != 1 {
			t.Fatalf("store has %d products, want 1", store.Len())
		}
		if !strings.Contains(out, "added") {
			t.Errorf("unexpected message %q", out)
		}
	})

	t.Run("gateway failure leaves store unchanged", func(t *testing.T) {
		r, repo, store := newTestRegistry(t)
		repo.createErr = fmt.Errorf("%w: connection reset", domain.ErrPersistence)
		_, err := r.Execute(ctx, "add", addArgs("3.5", "PN-1"), alice)
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("got %v, want ErrPersistence", err)
		}
		if store.Len() != 0 {
			t.Fatal("store mutated despite gateway failure")
		}
	})

	t.Run("partial organization triplet rejected", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		args := []string{"widget", "10", "2.5", "100", "PN-1", "-", "grams", "acme", "-", "-"}
		_, err := r.Execute(ctx, "add", args, alice)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
		if store.Len() != 0 {
			t.Fatal("store mutated on validation failure")
		}
	})

	t.Run("full organization triplet accepted", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		args := []string{"widget", "10", "2.5", "100", "PN-1", "-", "grams", "acme", "AcmeCorp", "25"}
		if _, err := r.Execute(ctx, "add", args, alice); err != nil {
			t.Fatalf("add: %v", err)
		}
		snap := store.Snapshot()
		if snap[0].Manufacturer == nil || snap[0].Manufacturer.CreatorID != alice.ID {
			t.Fatalf("manufacturer not attached: %+v", snap[0].Manufacturer)
		}
	})

	t.Run("coordinate below bound rejected", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		args := []string{"widget", "-349", "2.5", "100", "PN-1", "-", "grams", "-", "-", "-"}
		_, err := r.Execute(ctx, "add", args, alice)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
	})
}

func TestAddIfMin(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	if _, err := r.Execute(ctx, "add", addArgs("5", "PN-1"), alice); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	t.Run("non-minimal candidate is a no-op", func(t *testing.T) {
		out, err := r.Execute(ctx, "add_if_min", addArgs("10", "PN-2"), alice)
		if err != nil {
			t.Fatalf("add_if_min: %v", err)
		}
		if store.Len() != 1 {
			t.Fatal("non-minimal product was added")
		}
		if !strings.Contains(out, "nothing added") {
			t.Errorf("unexpected message %q", out)
		}
	})

	t.Run("equal candidate is a no-op", func(t *testing.T) {
		if _, err := r.Execute(ctx, "add_if_min", addArgs("5", "PN-3"), alice); err != nil {
			t.Fatalf("add_if_min: %v", err)
		}
		if store.Len() != 1 {
			t.Fatal("equal-cost product was added")
		}
	})

	t.Run("strictly smaller candidate is added", func(t *testing.T) {
		if _, err := r.Execute(ctx, "add_if_min", addArgs("1", "PN-4"), alice); err != nil {
			t.Fatalf("add_if_min: %v", err)
		}
		if store.Len() != 2 {
			t.Fatal("minimal product was not added")
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		args := append([]string{"42"}, addArgs("1", "PN-1")...)
		_, err := r.Execute(ctx, "update", args, alice)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("only the creator may update", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), bob); err != nil {
			t.Fatalf("seed add: %v", err)
		}
		args := append([]string{"1"}, addArgs("2", "PN-1")...)
		_, err := r.Execute(ctx, "update", args, alice)
		if !errors.Is(err, domain.ErrPermission) {
			t.Fatalf("got %v, want ErrPermission", err)
		}
	})

	t.Run("preserves id and creation date", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), alice); err != nil {
			t.Fatalf("seed add: %v", err)
		}
		before := store.ByID(1)
		args := append([]string{"1"}, addArgs("9", "PN-1")...)
		if _, err := r.Execute(ctx, "update", args, alice); err != nil {
			t.Fatalf("update: %v", err)
		}
		after := store.ByID(1)
		if after == nil {
			t.Fatal("product vanished")
		}
		if !after.CreationDate.Equal(before.CreationDate) {
			t.Error("creation date changed on update")
		}
		if *after.ManufactureCost != 9 {
			t.Errorf("cost = %g, want 9", *after.ManufactureCost)
		}
	})
}

func TestRemoveByID(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)
	if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), alice); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	t.Run("ownership enforced", func(t *testing.T) {
		_, err := r.Execute(ctx, "remove_by_id", []string{"1"}, bob)
		if !errors.Is(err, domain.ErrPermission) {
			t.Fatalf("got %v, want ErrPermission", err)
		}
		if store.Len() != 1 {
			t.Fatal("product removed by non-owner")
		}
	})

	t.Run("owner removes", func(t *testing.T) {
		if _, err := r.Execute(ctx, "remove_by_id", []string{"1"}, alice); err != nil {
			t.Fatalf("remove_by_id: %v", err)
		}
		if store.Len() != 0 {
			t.Fatal("product still present")
		}
	})

	t.Run("absent id", func(t *testing.T) {
		_, err := r.Execute(ctx, "remove_by_id", []string{"99"}, alice)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})
}

func TestRemoveHead(t *testing.T) {
	ctx := context.Background()

	t.Run("empty collection is a no-op", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		out, err := r.Execute(ctx, "remove_head", nil, alice)
		if err != nil {
			t.Fatalf("remove_head: %v", err)
		}
		if !strings.Contains(out, "empty") {
			t.Errorf("unexpected message %q", out)
		}
	})

	t.Run("foreign head is a no-op", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), bob); err != nil {
			t.Fatalf("seed add: %v", err)
		}
		out, err := r.Execute(ctx, "remove_head", nil, alice)
		if err != nil {
			t.Fatalf("remove_head: %v", err)
		}
		if store.Len() != 1 || !strings.Contains(out, "another user") {
			t.Errorf("head removed by non-owner; message %q", out)
		}
	})

	t.Run("owned head is removed", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), alice); err != nil {
			t.Fatalf("seed add: %v", err)
		}
		if _, err := r.Execute(ctx, "remove_head", nil, alice); err != nil {
			t.Fatalf("remove_head: %v", err)
		}
		if store.Len() != 0 {
			t.Fatal("head still present")
		}
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestRegistry(t)

	if _, err := r.Execute(ctx, "add", addArgs("1", "PN-1"), alice); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	if _, err := r.Execute(ctx, "add", addArgs("2", "PN-2"), bob); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	if _, err := r.Execute(ctx, "add", addArgs("3", "PN-3"), alice); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	out, err := r.Execute(ctx, "clear", nil, alice)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "2 product(s)") {
		t.Errorf("unexpected message %q", out)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d products, want 1", store.Len())
	}
	if snap := store.Snapshot(); snap[0].CreatorID != bob.ID {
		t.Error("wrong product survived clear")
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	t.Run("history skips itself", func(t *testing.T) {
		_, _ = r.Execute(ctx, "info", nil, alice)
		out, err := r.Execute(ctx, "history", nil, alice)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if strings.Contains(out, "history") {
			t.Errorf("history recorded itself: %q", out)
		}
		if !strings.Contains(out, "info") {
			t.Errorf("info missing from history: %q", out)
		}
	})

	t.Run("failed dispatches are recorded", func(t *testing.T) {
		_, _ = r.Execute(ctx, "remove_by_id", []string{"99"}, alice)
		out, _ := r.Execute(ctx, "history", nil, alice)
		if !strings.Contains(out, "remove_by_id") {
			t.Errorf("failed command missing from history: %q", out)
		}
	})

	t.Run("wrong arity invocations are recorded", func(t *testing.T) {
		fresh, _, _ := newTestRegistry(t)
		_, err := fresh.Execute(ctx, "filter_by_price", nil, alice)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
		out, _ := fresh.Execute(ctx, "history", nil, alice)
		if !strings.Contains(out, "filter_by_price") {
			t.Errorf("failed invocation missing from history: %q", out)
		}
	})

	t.Run("ring keeps the last 15", func(t *testing.T) {
		ring := newHistoryRing(historyCapacity)
		for i := 0; i < 20; i++ {
			ring.Add(fmt.Sprintf("cmd-%d", i))
		}
		items := ring.Items()
		if len(items) != historyCapacity {
			t.Fatalf("ring holds %d, want %d", len(items), historyCapacity)
		}
		if items[0] != "cmd-5" || items[len(items)-1] != "cmd-19" {
			t.Errorf("wrong window: first %q last %q", items[0], items[len(items)-1])
		}
	})
}

// addArgsWithOrg builds the 10 positional add arguments with the
// organization triplet filled in.
func addArgsWithOrg(cost, partNumber, orgFullName string) []string {
	return []string{"widget", "10", "2.5", "100", partNumber, cost, "grams", "acme", orgFullName, "25"}
}

func TestCascadeOnOrphan(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting the last referencer removes the organization", func(t *testing.T) {
		r, repo, store := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgsWithOrg("1", "PN-1", "AcmeCorp"), alice); err != nil {
			t.Fatalf("add: %v", err)
		}
		if !repo.organizationExists("AcmeCorp") {
			t.Fatal("organization not persisted with its product")
		}
		id := store.Snapshot()[0].ID
		if _, err := r.Execute(ctx, "remove_by_id", []string{fmt.Sprintf("%d", id)}, alice); err != nil {
			t.Fatalf("remove_by_id: %v", err)
		}
		if repo.organizationExists("AcmeCorp") {
			t.Error("orphaned organization survived the delete")
		}
	})

	t.Run("deleting one of several referencers keeps the organization", func(t *testing.T) {
		r, repo, store := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgsWithOrg("1", "PN-1", "AcmeCorp"), alice); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := r.Execute(ctx, "add", addArgsWithOrg("2", "PN-2", "AcmeCorp"), alice); err != nil {
			t.Fatalf("add: %v", err)
		}
		first := store.Snapshot()[0].ID
		if _, err := r.Execute(ctx, "remove_by_id", []string{fmt.Sprintf("%d", first)}, alice); err != nil {
			t.Fatalf("remove_by_id: %v", err)
		}
		if !repo.organizationExists("AcmeCorp") {
			t.Fatal("organization removed while still referenced")
		}
		second := store.Snapshot()[0].ID
		if _, err := r.Execute(ctx, "remove_by_id", []string{fmt.Sprintf("%d", second)}, alice); err != nil {
			t.Fatalf("remove_by_id: %v", err)
		}
		if repo.organizationExists("AcmeCorp") {
			t.Error("orphaned organization survived the last delete")
		}
	})

	t.Run("clear sweeps only the caller's orphaned organizations", func(t *testing.T) {
		r, repo, _ := newTestRegistry(t)
		if _, err := r.Execute(ctx, "add", addArgsWithOrg("1", "PN-1", "AliceOrg"), alice); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := r.Execute(ctx, "add", addArgsWithOrg("2", "PN-2", "BobOrg"), bob); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := r.Execute(ctx, "clear", nil, alice); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if repo.organizationExists("AliceOrg") {
			t.Error("orphaned organization survived clear")
		}
		if !repo.organizationExists("BobOrg") {
			t.Error("another user's organization removed by clear")
		}
	})
}

func TestConcurrentAdds(t *testing.T) {
	r, _, store := newTestRegistry(t)
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := alice
			if i%2 == 1 {
				user = bob
			}
			_, errs[i] = r.Execute(ctx, "add",
				addArgs(fmt.Sprintf("%d.5", i), fmt.Sprintf("PN-%d", i)), user)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent add %d failed: %v", i, err)
		}
	}
	if store.Len() != n {
		t.Fatalf("store has %d products, want %d", store.Len(), n)
	}
	snap := store.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].Compare(snap[i]) > 0 {
			t.Fatalf("collection out of order at %d after concurrent adds", i)
		}
	}
}

func TestReadOnlyHandlers(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	t.Run("head on empty collection", func(t *testing.T) {
		out, err := r.Execute(ctx, "head", nil, alice)
		if err != nil || !strings.Contains(out, "empty") {
			t.Fatalf("head = %q, %v", out, err)
		}
	})

	t.Run("info reports size", func(t *testing.T) {
		out, err := r.Execute(ctx, "info", nil, alice)
		if err != nil || !strings.Contains(out, "size: 0") {
			t.Fatalf("info = %q, %v", out, err)
		}
	})

	t.Run("filter by price with no matches", func(t *testing.T) {
		out, err := r.Execute(ctx, "filter_by_price", []string{"42"}, alice)
		if err != nil || !strings.Contains(out, "no products") {
			t.Fatalf("filter_by_price = %q, %v", out, err)
		}
	})

	t.Run("help lists every registered command", func(t *testing.T) {
		out, err := r.Execute(ctx, "help", nil, alice)
		if err != nil {
			t.Fatalf("help: %v", err)
		}
		for name := range r.commands {
			if !strings.Contains(out, name) {
				t.Errorf("help output missing %q", name)
			}
		}
	})
}
