package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"puppet-server/internal/model"
)

// Store is the backing storage shared by the registry, the history log and the command queue.
// Implementations must be safe for concurrent use. Lookups of unknown accounts return an error
// wrapping model.ErrNotFound; list operations on unknown accounts return empty slices.
type Store interface {
	GetOrCreateAccount(ctx context.Context, displayName, credential string, nowMillis int64) (model.Account, bool, error)
	GetAccount(ctx context.Context, accountID string) (model.Account, error)
	TouchPrompt(ctx context.Context, accountID string, nowMillis int64) error

	AppendHistory(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error)
	ListHistory(ctx context.Context, accountID string) ([]model.HistoryEntry, error)

	EnqueueCommand(ctx context.Context, accountID, instruction string, nowMillis int64) (model.Command, error)
	// DrainCommands flips every queued command of the account to running and returns the
	// flipped commands in creation order. A command is returned by at most one call.
	DrainCommands(ctx context.Context, accountID string, nowMillis int64) ([]model.Command, error)
	ListCommands(ctx context.Context, accountID string) ([]model.Command, error)

	// RecordEvent appends to the account event log and stamps the account's last event time.
	RecordEvent(ctx context.Context, accountID, text string, nowMillis int64) (model.Event, error)
	ListEvents(ctx context.Context, accountID string) ([]model.Event, error)

	Close() error
}

var errMissingAccountID = fmt.Errorf("%w: missing account id", model.ErrValidation)

func notFound(accountID string) error {
	return fmt.Errorf("%w: account %s", model.ErrNotFound, accountID)
}

func newAccount(displayName, credential string, nowMillis int64) model.Account {
	id := uuid.NewString()
	if displayName == "" {
		displayName = "user-" + id[:8]
	}
	return model.Account{
		ID:          id,
		DisplayName: displayName,
		Credential:  credential,
		CreatedAt:   nowMillis,
	}
}

func validateHistoryEntry(entry model.HistoryEntry) error {
	if entry.AccountID == "" {
		return errMissingAccountID
	}
	if !entry.Partition.Valid() {
		return fmt.Errorf("%w: unknown partition %q", model.ErrValidation, entry.Partition)
	}
	return nil
}

func sortHistory(entries []model.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt == entries[j].CreatedAt {
			return entries[i].Seq < entries[j].Seq
		}
		return entries[i].CreatedAt < entries[j].CreatedAt
	})
}

// Commands are delivered in insertion order, which seq records even if the clock moves.
func sortCommands(cmds []model.Command) {
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Seq < cmds[j].Seq })
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt == events[j].CreatedAt {
			return events[i].Seq < events[j].Seq
		}
		return events[i].CreatedAt < events[j].CreatedAt
	})
}
