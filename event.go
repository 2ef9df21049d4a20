package dirwatch

import "github.com/watchkit/dirwatch/internal/eventlog"

// Event is the shape delivered to a subscription's callback and returned
// by Scan/GetEventsSince: type, path, kind, and identity fields omitted
// when they're the sentinel.
type Event struct {
	Type    string `json:"type"` // "create", "update", "delete", or "rename"
	Path    string `json:"path"`
	Kind    string `json:"kind"` // "file" or "directory"
	Ino     uint64 `json:"ino,omitempty"`
	FileID  string `json:"fileId,omitempty"`
	OldPath string `json:"oldPath,omitempty"` // set only for renames
}

func kindOf(isDir bool) string {
	if isDir {
		return "directory"
	}
	return "file"
}

func fromInternal(e eventlog.Event) Event {
	out := Event{
		Path: e.Path,
		Kind: kindOf(e.IsDir),
		Type: e.Type().String(),
	}
	if e.Ino != 0 {
		out.Ino = e.Ino
	}
	if e.FileID != "" {
		out.FileID = e.FileID
	}
	if e.Type() == eventlog.Rename {
		out.OldPath = e.OldPath
	}
	return out
}

func fromInternalBatch(events []eventlog.Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = fromInternal(e)
	}
	return out
}
