package model

type Account struct {
	ID           string
	DisplayName  string
	Credential   string
	LastPromptAt int64
	LastEventAt  int64
	CreatedAt    int64
}

// HasCredential reports whether the account can call hosted providers.
func (a Account) HasCredential() bool {
	return a.Credential != ""
}

type Partition string

const (
	PartitionMobile     Partition = "mobile"
	PartitionBrowserURL Partition = "browser-url"
)

func (p Partition) Valid() bool {
	return p == PartitionMobile || p == PartitionBrowserURL
}

type HistoryEntry struct {
	ID        string
	Seq       int64
	AccountID string
	Prompt    string
	Response  string
	Partition Partition
	MachineID string
	Model     string
	CreatedAt int64
}

type CommandStatus string

const (
	CommandQueued  CommandStatus = "queued"
	CommandRunning CommandStatus = "running"
)

type Command struct {
	ID          string
	Seq         int64
	AccountID   string
	Instruction string
	Status      CommandStatus
	CreatedAt   int64
	UpdatedAt   int64
}

type Event struct {
	ID        string
	Seq       int64
	AccountID string
	Text      string
	CreatedAt int64
}
