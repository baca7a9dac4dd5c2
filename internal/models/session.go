package models

// DocumentState is the persisted form of one open document.
// Content is the document text (canonical encoding, or the raw text while
// a parse error is pending).
type DocumentState struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Dirty   bool   `json:"dirty"`
}

// SessionState is the editor state saved between runs.
type SessionState struct {
	Documents []DocumentState `json:"open_files"`
	Selected  int             `json:"selected"`
}
