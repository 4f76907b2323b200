package datamodel

import "time"

// TimestampLayout formats the at field of audit entries.
const TimestampLayout = time.RFC3339

// AuditEntry is one immutable line of the mutation log. Entries are only
// ever appended; nothing in the application edits or deletes them.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
}

func (e AuditEntry) Document() map[string]any {
	return map[string]any{
		"at":     e.At.UTC().Format(TimestampLayout),
		"actor":  e.Actor,
		"action": e.Action,
		"detail": e.Detail,
	}
}

func DecodeAuditEntry(handle string, data map[string]any) (AuditEntry, error) {
	at, err := requireTimeField(data, "at", TimestampLayout)
	if err != nil {
		return AuditEntry{}, err
	}
	return AuditEntry{
		At:     at,
		Actor:  stringField(data, "actor"),
		Action: stringField(data, "action"),
		Detail: stringField(data, "detail"),
	}, nil
}
