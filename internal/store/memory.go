package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"puppet-server/internal/model"
)

// MemoryStore keeps all state in process memory. With a StateFile it also writes a JSON
// snapshot after every mutation and restores it on startup.
type MemoryStore struct {
	mu sync.RWMutex

	stateFile   string
	persistMu   sync.Mutex
	snapshotGen uint64
	writtenGen  uint64
	log         logrus.FieldLogger

	accountsByID      map[string]model.Account
	accountIDByName   map[string]string
	commandsByAccount map[string][]model.Command

	history *appendLog[model.HistoryEntry]
	events  *appendLog[model.Event]
	seq     *seqGenerator
}

type Options struct {
	StateFile string
	Logger    logrus.FieldLogger
}

func NewMemory() *MemoryStore {
	return NewMemoryWithOptions(Options{})
}

func NewMemoryWithOptions(opts Options) *MemoryStore {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &MemoryStore{
		stateFile:         opts.StateFile,
		log:               log.WithField("component", "memstore"),
		accountsByID:      make(map[string]model.Account),
		accountIDByName:   make(map[string]string),
		commandsByAccount: make(map[string][]model.Command),
		history:           newAppendLog[model.HistoryEntry](),
		events:            newAppendLog[model.Event](),
		seq:               newSeqGenerator(),
	}

	if s.stateFile != "" {
		if err := s.loadFromFile(s.stateFile); err != nil {
			s.log.WithError(err).WithField("file", s.stateFile).Warn("state load failed")
		}
	}
	return s
}

func (s *MemoryStore) GetOrCreateAccount(_ context.Context, displayName, credential string, nowMillis int64) (model.Account, bool, error) {
	s.mu.Lock()

	if displayName != "" {
		if id, ok := s.accountIDByName[displayName]; ok {
			existing := s.accountsByID[id]
			s.mu.Unlock()
			return existing, false, nil
		}
	}

	acc := newAccount(displayName, credential, nowMillis)
	s.accountsByID[acc.ID] = acc
	s.accountIDByName[acc.DisplayName] = acc.ID
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return acc, true, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, accountID string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accountsByID[accountID]
	if !ok {
		return model.Account{}, notFound(accountID)
	}
	return acc, nil
}

func (s *MemoryStore) TouchPrompt(_ context.Context, accountID string, nowMillis int64) error {
	s.mu.Lock()
	acc, ok := s.accountsByID[accountID]
	if !ok {
		s.mu.Unlock()
		return notFound(accountID)
	}
	acc.LastPromptAt = nowMillis
	s.accountsByID[accountID] = acc
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry model.HistoryEntry) (model.HistoryEntry, error) {
	if err := validateHistoryEntry(entry); err != nil {
		return model.HistoryEntry{}, err
	}

	s.mu.Lock()
	if _, ok := s.accountsByID[entry.AccountID]; !ok {
		s.mu.Unlock()
		return model.HistoryEntry{}, notFound(entry.AccountID)
	}
	entry.ID = uuid.NewString()
	entry.Seq = s.seq.next(historyStream(entry.AccountID))
	s.history.append(entry.AccountID, entry)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return entry, nil
}

func (s *MemoryStore) ListHistory(_ context.Context, accountID string) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history.list(accountID)
	sortHistory(entries)
	return entries, nil
}

func (s *MemoryStore) EnqueueCommand(_ context.Context, accountID, instruction string, nowMillis int64) (model.Command, error) {
	s.mu.Lock()
	if _, ok := s.accountsByID[accountID]; !ok {
		s.mu.Unlock()
		return model.Command{}, notFound(accountID)
	}

	cmd := model.Command{
		ID:          uuid.NewString(),
		Seq:         s.seq.next(commandStream(accountID)),
		AccountID:   accountID,
		Instruction: instruction,
		Status:      model.CommandQueued,
		CreatedAt:   nowMillis,
		UpdatedAt:   nowMillis,
	}
	s.commandsByAccount[accountID] = append(s.commandsByAccount[accountID], cmd)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return cmd, nil
}

func (s *MemoryStore) DrainCommands(_ context.Context, accountID string, nowMillis int64) ([]model.Command, error) {
	s.mu.Lock()
	if _, ok := s.accountsByID[accountID]; !ok {
		s.mu.Unlock()
		return nil, notFound(accountID)
	}

	cmds := s.commandsByAccount[accountID]
	drained := make([]model.Command, 0)
	for i := range cmds {
		if cmds[i].Status != model.CommandQueued {
			continue
		}
		cmds[i].Status = model.CommandRunning
		cmds[i].UpdatedAt = nowMillis
		drained = append(drained, cmds[i])
	}

	var snap *persistedState
	if len(drained) > 0 {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.persist(snap)
	sortCommands(drained)
	return drained, nil
}

func (s *MemoryStore) ListCommands(_ context.Context, accountID string) ([]model.Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.commandsByAccount[accountID]
	cmds := make([]model.Command, len(src))
	copy(cmds, src)
	sortCommands(cmds)
	return cmds, nil
}

func (s *MemoryStore) RecordEvent(_ context.Context, accountID, text string, nowMillis int64) (model.Event, error) {
	s.mu.Lock()
	acc, ok := s.accountsByID[accountID]
	if !ok {
		s.mu.Unlock()
		return model.Event{}, notFound(accountID)
	}

	ev := model.Event{
		ID:        uuid.NewString(),
		Seq:       s.seq.next(eventStream(accountID)),
		AccountID: accountID,
		Text:      text,
		CreatedAt: nowMillis,
	}
	s.events.append(accountID, ev)
	acc.LastEventAt = nowMillis
	s.accountsByID[accountID] = acc
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return ev, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, accountID string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events.list(accountID)
	sortEvents(events)
	return events, nil
}

// Close waits for any in-flight snapshot write.
func (s *MemoryStore) Close() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return nil
}

type persistedState struct {
	Version  int                  `json:"version"`
	Accounts []model.Account      `json:"accounts"`
	History  []model.HistoryEntry `json:"history"`
	Commands []model.Command      `json:"commands"`
	Events   []model.Event        `json:"events"`
	SavedAt  int64                `json:"savedAt"`

	gen uint64
}

const stateVersion = 1

func (s *MemoryStore) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedState
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != stateVersion {
		return errors.New("unsupported state version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range file.Accounts {
		if acc.ID == "" || acc.DisplayName == "" {
			continue
		}
		s.accountsByID[acc.ID] = acc
		s.accountIDByName[acc.DisplayName] = acc.ID
	}
	for _, e := range file.History {
		if _, ok := s.accountsByID[e.AccountID]; !ok {
			continue
		}
		s.history.append(e.AccountID, e)
		s.seq.observe(historyStream(e.AccountID), e.Seq)
	}
	for _, c := range file.Commands {
		if _, ok := s.accountsByID[c.AccountID]; !ok {
			continue
		}
		s.commandsByAccount[c.AccountID] = append(s.commandsByAccount[c.AccountID], c)
		s.seq.observe(commandStream(c.AccountID), c.Seq)
	}
	for accountID := range s.commandsByAccount {
		sortCommands(s.commandsByAccount[accountID])
	}
	for _, ev := range file.Events {
		if _, ok := s.accountsByID[ev.AccountID]; !ok {
			continue
		}
		s.events.append(ev.AccountID, ev)
		s.seq.observe(eventStream(ev.AccountID), ev.Seq)
	}
	return nil
}

// snapshotLocked copies the full state. Callers hold s.mu for writing.
func (s *MemoryStore) snapshotLocked() *persistedState {
	if s.stateFile == "" {
		return nil
	}
	s.snapshotGen++

	accounts := make([]model.Account, 0, len(s.accountsByID))
	for _, acc := range s.accountsByID {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	var commands []model.Command
	for _, cmds := range s.commandsByAccount {
		commands = append(commands, cmds...)
	}

	return &persistedState{
		Version:  stateVersion,
		Accounts: accounts,
		History:  s.history.all(),
		Commands: commands,
		Events:   s.events.all(),
		gen:      s.snapshotGen,
	}
}

func (s *MemoryStore) persist(snap *persistedState) {
	if snap == nil || s.stateFile == "" {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	// A newer snapshot already reached the disk.
	if snap.gen <= s.writtenGen {
		return
	}
	if err := writeFileAtomic(s.stateFile, snap); err != nil {
		s.log.WithError(err).WithField("file", s.stateFile).Error("state persist failed")
		return
	}
	s.writtenGen = snap.gen
}

func writeFileAtomic(path string, snap *persistedState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	snap.SavedAt = time.Now().UnixMilli()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmpName, path)
}
