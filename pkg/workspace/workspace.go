// Package workspace wires the index, the synchronizer, the resolver
// and the style tool into one explicitly constructed session object.
// Every handler receives it; nothing in the server is ambient state.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync/atomic"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/ingest"
	"github.com/syntlyx/drupal-lsp-server/pkg/phpcs"
	"github.com/syntlyx/drupal-lsp-server/pkg/resolver"
)

// Workspace is one editing session over one Drupal root.
type Workspace struct {
	cfg Config

	idx     *index.Index
	sync    *ingest.Synchronizer
	watcher *ingest.Watcher
	res     *resolver.Resolver
	lint    *phpcs.Runner
	memo    *index.Memo[[]phpcs.Message]

	populated atomic.Bool
}

// New builds a workspace. Nothing is scanned until Open or
// ScanAndPopulate runs.
func New(cfg Config) *Workspace {
	idx := index.NewIndex()
	return &Workspace{
		cfg:  cfg,
		idx:  idx,
		sync: ingest.NewSynchronizer(idx, cfg.Root),
		res:  resolver.New(idx, cfg.Root, cfg.AllowedDynamicPrefixes),
		lint: phpcs.NewRunner(cfg.PhpcsBin, cfg.PhpcbfBin, cfg.PhpcsStandard),
		memo: index.NewMemo[[]phpcs.Message](cfg.MemoSize, cfg.MemoTTL),
	}
}

// Open scans the root and, when configured, starts watching the custom
// tree.
func (w *Workspace) Open() error {
	count := w.ScanAndPopulate()
	log.Printf("workspace: indexed %d entities under %s", count, w.cfg.Root)

	if !w.cfg.Watch {
		return nil
	}
	watcher, err := ingest.NewWatcher(w.sync)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	w.watcher = watcher
	return nil
}

// Close stops the watcher and drops cached derived data.
func (w *Workspace) Close() {
	if w.watcher != nil {
		w.watcher.Stop()
		w.watcher = nil
	}
	w.memo.Purge()
}

// ScanAndPopulate runs a full, tier-unrestricted scan and reports how
// many entities it indexed.
func (w *Workspace) ScanAndPopulate() int {
	count := w.sync.FullScan()
	w.populated.Store(true)
	return count
}

// OnPathChanged routes an external change notification for one path.
func (w *Workspace) OnPathChanged(path string) {
	w.sync.OnPathChanged(path)
}

// OnPathDeleted routes an external deletion notification.
func (w *Workspace) OnPathDeleted(path string) {
	w.sync.OnPathDeleted(path)
}

// IsPopulated reports whether the initial scan has completed. Reads
// before that simply see an empty index.
func (w *Workspace) IsPopulated() bool {
	return w.populated.Load()
}

// LookupByName finds an entity of any kind, services first.
func (w *Workspace) LookupByName(name string) (index.Entity, bool) {
	return w.idx.GetAny(name)
}

// ListAll returns every indexed entity, optionally filtered by kind.
func (w *Workspace) ListAll(kind index.Kind) []index.Entity {
	return w.idx.GetAll(kind)
}

// ListAllNames returns the sorted names of all entities of one kind.
func (w *Workspace) ListAllNames(kind index.Kind) []string {
	return w.idx.GetAllNames(kind)
}

// Index exposes the underlying store for read-only use.
func (w *Workspace) Index() *index.Index {
	return w.idx
}

// Resolver exposes lookup, navigation and validation.
func (w *Workspace) Resolver() *resolver.Resolver {
	return w.res
}

// Config returns the session settings.
func (w *Workspace) Config() Config {
	return w.cfg
}

// StyleAvailable reports whether the style checker can run at all.
func (w *Workspace) StyleAvailable() bool {
	return w.lint.Available()
}

// CheckStyle lints full document text, memoizing per content. The memo
// key includes the content hash, so an edited document never sees a
// stale report; superseded entries just age out.
func (w *Workspace) CheckStyle(ctx context.Context, text, displayPath string) []phpcs.Message {
	sum := sha256.Sum256([]byte(text))
	key := displayPath + ":" + hex.EncodeToString(sum[:16])
	if msgs, ok := w.memo.Get(key); ok {
		return msgs
	}
	msgs := w.lint.Check(ctx, text, displayPath)
	w.memo.Add(key, msgs)
	return msgs
}

// FixStyle applies automatic fixes in place.
func (w *Workspace) FixStyle(ctx context.Context, path string) bool {
	return w.lint.Fix(ctx, path)
}
