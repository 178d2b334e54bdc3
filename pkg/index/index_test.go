package index

import (
	"testing"
	"time"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Tier
	}{
		{"custom", "/var/www/web/modules/custom/my_module/my_module.services.yml", TierCustom},
		{"contrib", "/var/www/web/modules/contrib/token/token.services.yml", TierContrib},
		{"core", "/var/www/web/core/modules/node/node.routing.yml", TierCore},
		{"custom wins over core", "/srv/core/modules/custom/foo/foo.services.yml", TierCustom},
		{"core wins when custom absent", "/srv/core/modules/foo/foo.services.yml", TierCore},
		{"unmatched defaults lowest", "/tmp/scratch/foo.services.yml", TierUnknown},
		{"relative custom", "modules/custom/foo/foo.links.menu.yml", TierCustom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierOf(tt.path); got != tt.want {
				t.Errorf("TierOf(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func svc(name, file string, line int) Entity {
	return Entity{Kind: KindService, Name: name, SourceFile: file, SourceLine: line, Tier: TierOf(file)}
}

func TestReplaceAndLookup(t *testing.T) {
	ix := NewIndex()
	ix.ReplaceFile(KindService, "/web/modules/custom/a/a.services.yml", []Entity{
		svc("a.first", "/web/modules/custom/a/a.services.yml", 2),
		svc("a.second", "/web/modules/custom/a/a.services.yml", 5),
	})

	e, ok := ix.GetByName(KindService, "a.first")
	if !ok {
		t.Fatal("expected a.first to resolve")
	}
	if e.SourceLine != 2 {
		t.Errorf("SourceLine = %d, want 2", e.SourceLine)
	}
	if _, ok := ix.GetByName(KindService, "nope"); ok {
		t.Error("unexpected hit for unknown name")
	}
	if _, ok := ix.GetByName(KindRoute, "a.first"); ok {
		t.Error("service name must not resolve as a route")
	}
}

func TestReplaceIsWholesale(t *testing.T) {
	ix := NewIndex()
	file := "/web/modules/custom/a/a.services.yml"
	ix.ReplaceFile(KindService, file, []Entity{svc("a.first", file, 2), svc("a.second", file, 5)})
	ix.ReplaceFile(KindService, file, []Entity{svc("a.third", file, 2)})

	if _, ok := ix.GetByName(KindService, "a.second"); ok {
		t.Error("a.second should be gone after replace")
	}
	if _, ok := ix.GetByName(KindService, "a.third"); !ok {
		t.Error("a.third should be present after replace")
	}
	if got := ix.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestDuplicateNamesLastScanWins(t *testing.T) {
	ix := NewIndex()
	contrib := "/web/modules/contrib/x/x.services.yml"
	custom := "/web/modules/custom/y/y.services.yml"

	ix.ReplaceFile(KindService, contrib, []Entity{svc("shared.name", contrib, 3)})
	ix.ReplaceFile(KindService, custom, []Entity{svc("shared.name", custom, 7)})

	e, ok := ix.GetByName(KindService, "shared.name")
	if !ok {
		t.Fatal("expected shared.name to resolve")
	}
	if e.SourceFile != custom {
		t.Errorf("expected later scan to win, got %s", e.SourceFile)
	}

	// Purging the winner falls back to the surviving definition.
	ix.PurgeFile(custom)
	e, ok = ix.GetByName(KindService, "shared.name")
	if !ok {
		t.Fatal("expected fallback definition to resolve")
	}
	if e.SourceFile != contrib {
		t.Errorf("expected fallback to %s, got %s", contrib, e.SourceFile)
	}
}

func TestPurgeFile(t *testing.T) {
	ix := NewIndex()
	file := "/web/modules/custom/a/a.services.yml"
	other := "/web/modules/custom/b/b.routing.yml"
	ix.ReplaceFile(KindService, file, []Entity{svc("a.only", file, 2)})
	ix.ReplaceFile(KindRoute, other, []Entity{{Kind: KindRoute, Name: "b.page", SourceFile: other, SourceLine: 1}})

	ix.PurgeFile(file)

	if _, ok := ix.GetByName(KindService, "a.only"); ok {
		t.Error("a.only should miss after purge")
	}
	for _, e := range ix.GetAll("") {
		if e.SourceFile == file {
			t.Errorf("GetAll still contains entity from purged file: %+v", e)
		}
	}
	if _, ok := ix.GetByName(KindRoute, "b.page"); !ok {
		t.Error("purge must not touch other files")
	}
}

func TestClearMatching(t *testing.T) {
	ix := NewIndex()
	sfile := "/web/modules/custom/a/a.services.yml"
	rfile := "/web/modules/custom/a/a.routing.yml"
	ix.ReplaceFile(KindService, sfile, []Entity{svc("a.svc", sfile, 1)})
	ix.ReplaceFile(KindRoute, rfile, []Entity{{Kind: KindRoute, Name: "a.page", SourceFile: rfile, SourceLine: 1}})

	// Prefix form drops a whole category without naming files.
	ix.ClearMatching("service:*")
	if _, ok := ix.GetByName(KindService, "a.svc"); ok {
		t.Error("services should be gone after service:* eviction")
	}
	if _, ok := ix.GetByName(KindRoute, "a.page"); !ok {
		t.Error("routes must survive service:* eviction")
	}

	// Substring form.
	ix.ClearMatching("*a.routing*")
	if _, ok := ix.GetByName(KindRoute, "a.page"); ok {
		t.Error("routes should be gone after substring eviction")
	}

	// Exact form.
	ix.ReplaceFile(KindService, sfile, []Entity{svc("a.svc", sfile, 1)})
	ix.ClearMatching("service:" + sfile)
	if _, ok := ix.GetByName(KindService, "a.svc"); ok {
		t.Error("exact eviction should drop the bucket")
	}
}

func TestGetAllNamesSorted(t *testing.T) {
	ix := NewIndex()
	file := "/web/modules/custom/a/a.services.yml"
	ix.ReplaceFile(KindService, file, []Entity{svc("zeta", file, 1), svc("alpha", file, 2)})

	names := ix.GetAllNames(KindService)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("GetAllNames = %v, want [alpha zeta]", names)
	}
}

func TestMemoExpiry(t *testing.T) {
	m := NewMemo[string](8, 30*time.Millisecond)
	m.Add("doc:1", "cached")

	if v, ok := m.Get("doc:1"); !ok || v != "cached" {
		t.Fatalf("Get = %q, %v; want cached, true", v, ok)
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := m.Get("doc:1"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoInvalidate(t *testing.T) {
	m := NewMemo[int](8, time.Minute)
	m.Add("doc:1", 1)
	m.Invalidate("doc:1")
	if _, ok := m.Get("doc:1"); ok {
		t.Error("invalidated entry should miss")
	}
}
