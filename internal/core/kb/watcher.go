package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchSeedFile re-reads the YAML seed at path whenever it changes and adds
// documents whose IDs are not indexed yet. Edits to existing IDs are ignored;
// those need a rebuild. The watcher stops when ctx is cancelled.
func WatchSeedFile(ctx context.Context, r *Retriever, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return err
	}
	// editors replace files by rename, so watch the directory
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()

		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				debounce = time.After(300 * time.Millisecond)

			case <-debounce:
				debounce = nil
				added, err := SyncFromFile(ctx, r, abs)
				if err != nil {
					log.Error().Err(err).Str("file", abs).Msg("❌ Knowledge base reload failed")
					continue
				}
				if added > 0 {
					log.Info().Int("added", added).Msg("📚 Knowledge base reloaded")
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("⚠️ Knowledge base watcher error")
			}
		}
	}()

	log.Info().Str("file", abs).Msg("👀 Watching knowledge base file")
	return nil
}

// SyncFromFile adds every document in the seed file that the retriever lacks.
func SyncFromFile(ctx context.Context, r *Retriever, path string) (int, error) {
	docs, err := LoadDocuments(path)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, doc := range docs {
		if r.HasDocument(doc.ID) {
			continue
		}
		if err := r.AddDocument(ctx, doc); err != nil {
			return added, fmt.Errorf("failed to add %s: %w", doc.ID, err)
		}
		added++
	}
	return added, nil
}
