// Package storage persists engine state two ways: JSON snapshots of the
// full state for restart recovery, and a SQLite journal of every fill for
// durable history beyond the in-memory ring.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

// SnapshotManager writes and reads engine state snapshots. Recovery loads
// the highest-seq snapshot that parses; anything older is backup depth.
type SnapshotManager struct {
	dir  string
	keep int // old snapshots pruned after each save; <= 0 disables
}

// NewSnapshotManager creates a manager over the given directory. keep
// bounds how many snapshot files survive a save; pass 0 to never prune.
func NewSnapshotManager(dir string, keep int) *SnapshotManager {
	return &SnapshotManager{dir: dir, keep: keep}
}

// Save writes the state as snapshot_<seq>_<ts>.json and prunes beyond the
// keep bound, so the file count stays bounded even when the process never
// exits cleanly. Satisfies the engine's persister; a failed save is logged
// by the caller and the next tick tries again.
func (sm *SnapshotManager) Save(state *domain.EngineState) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("snapshot_%d_%d.json", state.Seq, time.Now().Unix())
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Debug("snapshot saved",
		slog.Uint64("seq", state.Seq),
		slog.String("path", path))

	if sm.keep > 0 {
		if err := sm.Cleanup(sm.keep); err != nil {
			slog.Warn("snapshot cleanup failed", slog.Any("error", err))
		}
	}

	return nil
}

// LoadLatest loads the highest-seq snapshot that parses, migrated to the
// current schema. A corrupt file is logged and skipped in favor of the
// next-older one; the process must never refuse to start over bad state
// from a previous run. Returns nil if no readable snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*domain.EngineState, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // fresh start
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	files := collectSnapFiles(sm.dir, entries)
	sortBySeqDesc(files)

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			slog.Warn("snapshot unreadable, trying older",
				slog.String("path", f.path),
				slog.Any("error", err))
			continue
		}

		var state domain.EngineState
		if err := json.Unmarshal(data, &state); err != nil {
			slog.Warn("snapshot corrupt, trying older",
				slog.String("path", f.path),
				slog.Any("error", err))
			continue
		}
		state.Migrate()

		slog.Info("snapshot loaded",
			slog.Uint64("seq", state.Seq),
			slog.String("path", f.path))

		return &state, nil
	}

	return nil, nil
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	files := collectSnapFiles(sm.dir, entries)
	if len(files) <= keepCount {
		return nil
	}
	sortBySeqDesc(files)

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("failed to remove old snapshot", slog.String("path", files[i].path))
		} else {
			slog.Debug("removed old snapshot", slog.String("path", files[i].path))
		}
	}

	return nil
}

type snapFile struct {
	path string
	seq  uint64
}

func collectSnapFiles(dir string, entries []os.DirEntry) []snapFile {
	var files []snapFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var seq uint64
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &seq, &ts); err == nil {
			files = append(files, snapFile{
				path: filepath.Join(dir, entry.Name()),
				seq:  seq,
			})
		}
	}
	return files
}

// sortBySeqDesc orders newest snapshot first. Small N, simple sort.
func sortBySeqDesc(files []snapFile) {
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].seq > files[i].seq {
				files[i], files[j] = files[j], files[i]
			}
		}
	}
}
