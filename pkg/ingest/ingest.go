// Package ingest keeps the entity index synchronized with a Drupal
// tree: one unrestricted full scan at startup, then narrow per-file
// rescans driven by file events.
package ingest

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/parse"
)

// suffixRoutes maps definition filename suffixes to entity kinds. An
// event for a file matching none of them is irrelevant and dropped.
var suffixRoutes = []struct {
	suffix string
	kind   index.Kind
}{
	{".services.yml", index.KindService},
	{".routing.yml", index.KindRoute},
	{".links.menu.yml", index.KindLink},
	{".links.task.yml", index.KindLink},
	{".links.action.yml", index.KindLink},
	{".links.contextual.yml", index.KindLink},
}

// KindForPath routes a filename to its entity kind.
func KindForPath(path string) (index.Kind, bool) {
	base := filepath.Base(path)
	for _, r := range suffixRoutes {
		if strings.HasSuffix(base, r.suffix) {
			return r.kind, true
		}
	}
	return "", false
}

// Directories never worth descending into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"files":        true,
}

// Synchronizer drives the parser and the index in response to scan
// requests and file events.
//
// Scope is deliberately asymmetric: FullScan covers every tier so
// lookups see core and contrib definitions, but live rescans accept
// only custom-tier files. Re-walking the large, slowly changing
// third-party tree on every edit is not worth it; core and contrib
// definitions simply stay as the startup scan left them.
type Synchronizer struct {
	idx  *index.Index
	root string
}

// NewSynchronizer creates a synchronizer over one web root.
func NewSynchronizer(idx *index.Index, root string) *Synchronizer {
	return &Synchronizer{idx: idx, root: root}
}

// FullScan walks the whole root and populates the index from every
// definition file in every tier. It returns the number of entities
// indexed. The walk is single threaded and lexically ordered, so when
// two files define the same name, "last completed scan wins" is a
// deterministic function of the tree, not of goroutine timing.
func (s *Synchronizer) FullScan() int {
	count := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A vanished or unreadable subtree contributes nothing.
			log.Printf("ingest: skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := KindForPath(path)
		if !ok {
			return nil
		}
		entities := parse.File(path, kind)
		s.idx.ReplaceFile(kind, path, entities)
		count += len(entities)
		return nil
	})
	if err != nil {
		log.Printf("ingest: scan of %s aborted: %v", s.root, err)
	}
	return count
}

// OnPathChanged reparses one changed or created file and replaces its
// contribution. Files outside the custom tier are ignored, see the
// Synchronizer scope note.
func (s *Synchronizer) OnPathChanged(path string) {
	kind, ok := KindForPath(path)
	if !ok {
		return
	}
	if index.TierOf(path) != index.TierCustom {
		return
	}
	s.idx.ReplaceFile(kind, path, parse.File(path, kind))
}

// OnPathDeleted purges everything the file contributed. No reparse,
// and no tier restriction: dropping stale entities is always correct.
func (s *Synchronizer) OnPathDeleted(path string) {
	if _, ok := KindForPath(path); !ok {
		return
	}
	s.idx.PurgeFile(path)
}
