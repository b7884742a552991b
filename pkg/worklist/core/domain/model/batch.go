package model

import "github.com/google/uuid"

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// BatchEntry is one (identity, payload) pair of a WorkBatch.
type BatchEntry[P any] struct {
	ID      StableID
	Payload P
}

// WorkBatch is an immutable snapshot of the rows checked at dispatch time, in positional order.
// The worker only reads it.
type WorkBatch[P any] struct {
	id      string
	entries []BatchEntry[P]
}

// NewWorkBatch creates a batch with a fresh ID. entries is copied.
func NewWorkBatch[P any](entries []BatchEntry[P]) *WorkBatch[P] {
	return &WorkBatch[P]{
		id:      NewID(),
		entries: append([]BatchEntry[P](nil), entries...),
	}
}

// ID returns the unique batch ID.
func (b *WorkBatch[P]) ID() string {
	return b.id
}

// Len returns the number of entries.
func (b *WorkBatch[P]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Entry returns the i-th entry.
func (b *WorkBatch[P]) Entry(i int) BatchEntry[P] {
	return b.entries[i]
}

// Entries returns a copy of all entries.
func (b *WorkBatch[P]) Entries() []BatchEntry[P] {
	return append([]BatchEntry[P](nil), b.entries...)
}

// IDs returns the StableIDs of the batch, in entry order.
func (b *WorkBatch[P]) IDs() []StableID {
	ids := make([]StableID, len(b.entries))
	for i, e := range b.entries {
		ids[i] = e.ID
	}
	return ids
}

// Payloads returns the payloads of the batch, in entry order.
func (b *WorkBatch[P]) Payloads() []P {
	ps := make([]P, len(b.entries))
	for i, e := range b.entries {
		ps[i] = e.Payload
	}
	return ps
}

// ResultEntry is the terminal outcome for one WorkBatch entry.
type ResultEntry struct {
	Succeeded bool
	Text      string
}

// Success returns a successful ResultEntry with the given display text.
func Success(text string) ResultEntry {
	return ResultEntry{Succeeded: true, Text: text}
}

// Failure returns a failed ResultEntry with the given display text.
func Failure(text string) ResultEntry {
	return ResultEntry{Succeeded: false, Text: text}
}
