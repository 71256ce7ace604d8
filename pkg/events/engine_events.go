package events

// Topics used by the context engine and its collaborators.
const (
	TopicFileChanged    = "file.changed"
	TopicSessionChanged = "session.changed"
	TopicContextBuilt   = "context.built"
)

// FileChangedEvent is emitted by the file-watch collaborator when a file's
// content changes on disk. The engine invalidates its cached token count.
type FileChangedEvent struct {
	Identity string
}

// Topic returns the event topic for file changes.
func (e FileChangedEvent) Topic() string {
	return TopicFileChanged
}

// SessionChangedEvent is emitted by the session collaborator when a
// conversation's state changes. Any in-flight context build for that
// session is cancelled and its result discarded.
type SessionChangedEvent struct {
	SessionID string
}

// Topic returns the event topic for session changes.
func (e SessionChangedEvent) Topic() string {
	return TopicSessionChanged
}

// ContextBuiltEvent is published after a context build completes.
type ContextBuiltEvent struct {
	SessionID  string
	BuildID    string
	TotalUsed  int
	Included   int
	Omitted    int
}

// Topic returns the event topic for completed builds.
func (e ContextBuiltEvent) Topic() string {
	return TopicContextBuilt
}
