package editor

// ChangeType names a workspace mutation.
type ChangeType string

const (
	DocumentOpened  ChangeType = "document.opened"
	DocumentCreated ChangeType = "document.created"
	DocumentClosed  ChangeType = "document.closed"
	DocumentChanged ChangeType = "document.changed"
	DocumentSaved   ChangeType = "document.saved"
	DocumentRenamed ChangeType = "document.renamed"
	SnippetAdded    ChangeType = "snippet.added"
	SnippetUpdated  ChangeType = "snippet.updated"
	SnippetDeleted  ChangeType = "snippet.deleted"
	SnippetMoved    ChangeType = "snippet.moved"
)

// Change is emitted after a mutation that altered workspace state.
type Change struct {
	Type     ChangeType `json:"type"`
	Document string     `json:"document"`
	From     string     `json:"from,omitempty"` // previous name, renames only
	Indexes  []int      `json:"indexes,omitempty"`
	Dirty    bool       `json:"dirty"`
}

// Notifier receives changes. It is called outside the workspace lock.
type Notifier func(Change)
