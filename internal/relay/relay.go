// Package relay implements the account registry, the command queue with its polling drain, and
// history reads on top of a store.Store.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"puppet-server/internal/hub"
	"puppet-server/internal/model"
	"puppet-server/internal/store"
)

// Publisher receives account activity for live watchers.
type Publisher interface {
	Publish(accountID, msgType string, body any)
}

type Options struct {
	Store     store.Store
	Publisher Publisher
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type Service struct {
	store store.Store
	pub   Publisher
	log   logrus.FieldLogger
	now   func() time.Time
	locks accountLocks
}

func New(opts Options) *Service {
	s := &Service{store: opts.Store, pub: opts.Publisher, log: opts.Logger, now: opts.Now}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "relay")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register returns the account named displayName, creating it with credential when absent.
// existing reports whether the name was already taken; the credential is then ignored.
func (s *Service) Register(ctx context.Context, displayName, credential string) (model.Account, bool, error) {
	acc, created, err := s.store.GetOrCreateAccount(ctx, strings.TrimSpace(displayName), strings.TrimSpace(credential), s.now().UnixMilli())
	if err != nil {
		return model.Account{}, false, err
	}
	if created {
		s.log.WithField("account_id", acc.ID).Info("account registered")
	}
	return acc, !created, nil
}

func (s *Service) AccountDetails(ctx context.Context, accountID string) (model.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// Enqueue appends instruction to the account's queue behind everything already queued.
func (s *Service) Enqueue(ctx context.Context, accountID, instruction string) (model.Command, error) {
	if strings.TrimSpace(instruction) == "" {
		return model.Command{}, fmt.Errorf("%w: command is required", model.ErrValidation)
	}
	cmd, err := s.store.EnqueueCommand(ctx, accountID, instruction, s.now().UnixMilli())
	if err != nil {
		return model.Command{}, err
	}
	s.publish(accountID, hub.TypeCommandEnqueued, map[string]any{
		"id":         cmd.ID,
		"command":    cmd.Instruction,
		"status":     cmd.Status,
		"created_at": cmd.CreatedAt,
	})
	return cmd, nil
}

// Poll records eventText and hands back every queued instruction for the account, oldest first.
// The drained commands move to running and are never returned by another poll.
func (s *Service) Poll(ctx context.Context, accountID, eventText string) ([]string, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for account queue: %v", model.ErrTimeout, err)
	}
	ev, drained, err := s.recordAndDrain(ctx, accountID, eventText)
	release()
	if err != nil {
		return nil, err
	}

	instructions := make([]string, 0, len(drained))
	for _, c := range drained {
		instructions = append(instructions, c.Instruction)
	}

	s.publish(accountID, hub.TypeEvent, map[string]any{"id": ev.ID, "event": ev.Text, "created_at": ev.CreatedAt})
	if len(drained) > 0 {
		s.log.WithFields(logrus.Fields{"account_id": accountID, "count": len(drained)}).Debug("commands drained")
		s.publish(accountID, hub.TypeCommandsDrained, instructions)
	}
	return instructions, nil
}

func (s *Service) recordAndDrain(ctx context.Context, accountID, eventText string) (model.Event, []model.Command, error) {
	now := s.now().UnixMilli()
	ev, err := s.store.RecordEvent(ctx, accountID, eventText, now)
	if err != nil {
		return model.Event{}, nil, err
	}
	drained, err := s.store.DrainCommands(ctx, accountID, now)
	if err != nil {
		return model.Event{}, nil, err
	}
	return ev, drained, nil
}

type History struct {
	History        []model.HistoryEntry
	BrowserHistory []model.HistoryEntry
	Commands       []model.Command
	Events         []model.Event
}

// History returns everything recorded for the account, each list oldest first. Unknown accounts
// yield empty lists.
func (s *Service) History(ctx context.Context, accountID string) (History, error) {
	out := History{
		History:        []model.HistoryEntry{},
		BrowserHistory: []model.HistoryEntry{},
		Commands:       []model.Command{},
		Events:         []model.Event{},
	}

	entries, err := s.store.ListHistory(ctx, accountID)
	if err != nil {
		return History{}, err
	}
	for _, e := range entries {
		switch e.Partition {
		case model.PartitionMobile:
			out.History = append(out.History, e)
		case model.PartitionBrowserURL:
			out.BrowserHistory = append(out.BrowserHistory, e)
		}
	}

	cmds, err := s.store.ListCommands(ctx, accountID)
	if err != nil {
		return History{}, err
	}
	out.Commands = append(out.Commands, cmds...)

	events, err := s.store.ListEvents(ctx, accountID)
	if err != nil {
		return History{}, err
	}
	out.Events = append(out.Events, events...)
	return out, nil
}

// SaveURL records a page visit reported by the browser extension running on machineID.
func (s *Service) SaveURL(ctx context.Context, accountID, machineID, url string) (model.HistoryEntry, error) {
	machineID = strings.TrimSpace(machineID)
	url = strings.TrimSpace(url)
	if machineID == "" {
		return model.HistoryEntry{}, fmt.Errorf("%w: machineid is required", model.ErrValidation)
	}
	if url == "" {
		return model.HistoryEntry{}, fmt.Errorf("%w: url is required", model.ErrValidation)
	}
	return s.store.AppendHistory(ctx, model.HistoryEntry{
		AccountID: accountID,
		Prompt:    url,
		Partition: model.PartitionBrowserURL,
		MachineID: machineID,
		CreatedAt: s.now().UnixMilli(),
	})
}

func (s *Service) publish(accountID, msgType string, body any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(accountID, msgType, body)
}
