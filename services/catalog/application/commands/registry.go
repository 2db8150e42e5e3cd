// Package commands implements the server-side command table: a
// case-insensitive registry dispatching authenticated requests to handlers
// over the shared collection store and the persistence gateway.
//
// Mutating handlers run under a single registry-wide mutex so the
// gateway-then-store sequence of one command can never interleave with
// another's. Read-only handlers work on store snapshots and skip the mutex.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/metrics"
	"github.com/ghuser/prodvault/services/catalog/application/collection"
	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
	"github.com/ghuser/prodvault/services/catalog/domain/repositories"
)

// handlerFunc executes one command for user and returns the text sent back to
// the client.
type handlerFunc func(ctx context.Context, args []string, user *models.User) (string, error)

// Command is one entry of the dispatch table.
type Command struct {
	Name        string
	Description string
	Arity       int
	run         handlerFunc
}

// Registry is the shared command dispatcher. One instance serves every
// session.
type Registry struct {
	store    *collection.Store
	products repositories.ProductRepository
	log      logger.Logger
	metrics  *metrics.Metrics

	// writeMu serializes mutating handlers so persistence commit and store
	// mutation form one critical section per command.
	writeMu sync.Mutex

	history *historyRing

	scriptsMu     sync.Mutex
	activeScripts map[string]struct{}

	commands map[string]*Command
}

// NewRegistry builds the dispatch table over the given store and gateway.
// metrics may be nil in tests.
func NewRegistry(store *collection.Store, products repositories.ProductRepository, log logger.Logger, m *metrics.Metrics) *Registry {
	r := &Registry{
		store:         store,
		products:      products,
		log:           log.With("component", "commands"),
		metrics:       m,
		history:       newHistoryRing(historyCapacity),
		activeScripts: make(map[string]struct{}),
	}
	r.commands = map[string]*Command{}
	for _, c := range []*Command{
		{Name: "add", Description: "add a new product to the collection", Arity: 10, run: r.runAdd},
		{Name: "update", Description: "update the product with the given id", Arity: 11, run: r.runUpdate},
		{Name: "add_if_min", Description: "add the product only if it would become the new minimum", Arity: 10, run: r.runAddIfMin},
		{Name: "remove_by_id", Description: "remove the product with the given id", Arity: 1, run: r.runRemoveByID},
		{Name: "clear", Description: "remove every product you created", Arity: 0, run: r.runClear},
		{Name: "execute_script", Description: "execute commands from a server-side script file", Arity: 1, run: r.runExecuteScript},
		{Name: "head", Description: "show the first product of the collection", Arity: 0, run: r.runHead},
		{Name: "remove_head", Description: "remove the first product of the collection", Arity: 0, run: r.runRemoveHead},
		{Name: "average_of_manufacture_cost", Description: "show the average manufacture cost", Arity: 0, run: r.runAverageOfManufactureCost},
		{Name: "sort", Description: "sort the collection", Arity: 0, run: r.runSort},
		{Name: "history", Description: "show the last executed commands", Arity: 0, run: r.runHistory},
		{Name: "filter_by_price", Description: "show products with the given exact price", Arity: 1, run: r.runFilterByPrice},
		{Name: "print_ascending", Description: "show the collection in ascending order", Arity: 0, run: r.runPrintAscending},
		{Name: "print_field_ascending_price", Description: "show all prices in ascending order", Arity: 0, run: r.runPrintFieldAscendingPrice},
		{Name: "info", Description: "show collection type, initialization time and size", Arity: 0, run: r.runInfo},
		{Name: "show", Description: "show every product in the collection", Arity: 0, run: r.runShow},
		{Name: "help", Description: "show available commands", Arity: 0, run: r.runHelp},
	} {
		r.commands[c.Name] = c
	}
	return r
}

// Execute dispatches one command. Command names are case-insensitive. Every
// dispatched command except history itself lands in the history ring, whether
// it succeeds or not.
func (r *Registry) Execute(ctx context.Context, name string, args []string, user *models.User) (string, error) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	cmd, ok := r.commands[canonical]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownCommand, name)
	}
	if canonical != "history" {
		r.history.Add(canonical)
	}
	if len(args) != cmd.Arity {
		return "", fmt.Errorf("%w: %s expects %d argument(s), got %d",
			domain.ErrValidation, cmd.Name, cmd.Arity, len(args))
	}

	start := time.Now()
	out, err := cmd.run(ctx, args, user)
	if r.metrics != nil {
		r.metrics.ObserveCommand(canonical, err, time.Since(start))
	}
	if err != nil {
		r.log.DebugContext(ctx, "command failed",
			"command", canonical, "user", user.Username, "error", err)
		return "", err
	}
	return out, nil
}

// Commands returns the table entries sorted by name, for help output.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
