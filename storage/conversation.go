// Package storage keeps what a run leaves behind outside its directory: the
// trace index and the planner conversation.
//
// Information Hiding:
// - SQLite schema and queries, or the maps that stand in for them
// - Encoding of tool calls inside stored messages
// - Ordering guarantees of listings

package storage

import (
	"context"

	"github.com/richinex/sightline/llm"
)

// ConversationStorage keeps the planner conversation of each run, keyed by
// run ID. Histories are stored as the loop built them, before any pruning.
type ConversationStorage interface {
	// Save replaces the stored history of runID.
	Save(ctx context.Context, runID string, history []llm.ChatMessage) error

	// Load returns the stored history of runID. A run with nothing stored
	// yields an empty slice and no error.
	Load(ctx context.Context, runID string) ([]llm.ChatMessage, error)

	// Delete removes the stored history of runID.
	Delete(ctx context.Context, runID string) error
}
