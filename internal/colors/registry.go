// Package colors assigns stable display colors to subjects for timetable
// rendering. Assignments live in a redis hash so every client sees the same
// color for a subject; without redis the registry falls back to a
// deterministic hash over the subject id, which is stable but not
// coordinated.
package colors

import (
	"context"
	"hash/fnv"

	"github.com/redis/go-redis/v9"
)

const hashKey = "campustrack:subject-colors"

// Palette is the fixed set of display colors cycled across subjects.
var Palette = []string{
	"#2563eb", "#16a34a", "#d97706", "#dc2626", "#7c3aed",
	"#0891b2", "#be185d", "#4d7c0f", "#b45309", "#475569",
}

// Registry resolves a subject id to a display color.
type Registry struct {
	client *redis.Client
}

// NewRegistry builds a registry; client may be nil for fallback-only mode.
func NewRegistry(client *redis.Client) *Registry {
	return &Registry{client: client}
}

// Color returns the persistent color for a subject, assigning one on first
// lookup. Redis errors degrade to the deterministic fallback.
func (r *Registry) Color(ctx context.Context, subjectID string) string {
	fallback := Palette[hashIndex(subjectID)]
	if r == nil || r.client == nil {
		return fallback
	}
	if err := r.client.HSetNX(ctx, hashKey, subjectID, fallback).Err(); err != nil {
		return fallback
	}
	val, err := r.client.HGet(ctx, hashKey, subjectID).Result()
	if err != nil || val == "" {
		return fallback
	}
	return val
}

func hashIndex(subjectID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(len(Palette)))
}
