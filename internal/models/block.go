package models

// BlockEntry is stored at users/{blocker}/blockedUsers/{blocked}. The
// relation is directed; unblocking writes Blocked=false rather than deleting.
type BlockEntry struct {
	Blocked bool `json:"blocked"`
}
