package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"puppet-server/internal/model"
)

func TestMemoryStore_Persistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "state.json")
	ctx := context.Background()

	s1 := NewMemoryWithOptions(Options{StateFile: stateFile})
	acc, created, err := s1.GetOrCreateAccount(ctx, "alice", "sk-1", 1000)
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if !created {
		t.Fatalf("expected account created")
	}
	if _, err := s1.EnqueueCommand(ctx, acc.ID, "acc:UP", 1001); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	if _, err := s1.EnqueueCommand(ctx, acc.ID, "acc:DOWN", 1002); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	if _, err := s1.DrainCommands(ctx, acc.ID, 1003); err != nil {
		t.Fatalf("DrainCommands: %v", err)
	}
	if _, err := s1.EnqueueCommand(ctx, acc.ID, "acc:CLICK FIRST", 1004); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	entry := model.HistoryEntry{AccountID: acc.ID, Prompt: "q", Response: "a", Partition: model.PartitionMobile, CreatedAt: 1005}
	if _, err := s1.AppendHistory(ctx, entry); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if _, err := s1.RecordEvent(ctx, acc.ID, "heartbeat", 1006); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(stateFile)
	if err != nil {
		t.Fatalf("expected state file written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected state file mode 0600, got %o", info.Mode().Perm())
	}

	s2 := NewMemoryWithOptions(Options{StateFile: stateFile})
	again, created, err := s2.GetOrCreateAccount(ctx, "alice", "", 2000)
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if created || again.ID != acc.ID || again.Credential != "sk-1" {
		t.Fatalf("unexpected account after reload: %+v created=%v", again, created)
	}
	if again.LastEventAt != 1006 {
		t.Fatalf("expected last event restored, got %d", again.LastEventAt)
	}

	drained, err := s2.DrainCommands(ctx, acc.ID, 2001)
	if err != nil {
		t.Fatalf("DrainCommands: %v", err)
	}
	if len(drained) != 1 || drained[0].Instruction != "acc:CLICK FIRST" {
		t.Fatalf("expected only the still-queued command, got %+v", drained)
	}

	// New records continue the restored sequence.
	cmd, err := s2.EnqueueCommand(ctx, acc.ID, "acc:TYPE FIRST", 2002)
	if err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	if cmd.Seq != 4 {
		t.Fatalf("expected seq 4, got %d", cmd.Seq)
	}

	hist, _ := s2.ListHistory(ctx, acc.ID)
	if len(hist) != 1 || hist[0].Response != "a" {
		t.Fatalf("unexpected history after reload: %+v", hist)
	}
	events, _ := s2.ListEvents(ctx, acc.ID)
	if len(events) != 1 || events[0].Text != "heartbeat" {
		t.Fatalf("unexpected events after reload: %+v", events)
	}
}

func TestMemoryStore_Persistence_MissingFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewMemoryWithOptions(Options{StateFile: stateFile})
	if _, _, err := s.GetOrCreateAccount(context.Background(), "x", "", 1); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if _, err := os.Stat(stateFile); err != nil {
		t.Fatalf("expected state file created in nested dir: %v", err)
	}
}
