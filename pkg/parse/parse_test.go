package parse

import (
	"reflect"
	"strings"
	"testing"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
)

const servicesYml = `services:
  _defaults:
    autowire: true
  my_module.mailer:
    class: Drupal\my_module\Mailer
    arguments: ['@config.factory', '@entity_type.manager']
    parent: base.mailer
    tags:
      - { name: backend_overridable }
  my_module.mailer_factory:
    class: Drupal\my_module\MailerFactory
    factory: ['@my_module.mailer', 'create']
  my_module.legacy: '@my_module.mailer'
`

const routingYml = `my_module.settings:
  path: '/admin/config/my-module'
  defaults:
    _controller: '\Drupal\my_module\Controller\SettingsController::build'
    _title: 'My module'
  requirements:
    _permission: 'administer site configuration'
my_module.report:
  path: '/admin/reports/my-module'
  defaults:
    _controller: '\Drupal\my_module\Controller\ReportController::build'
`

const linksYml = `my_module.admin:
  title: 'My module'
  parent: system.admin_config
  route_name: my_module.settings
  appears_on:
    - my_module.settings
    - my_module.report
  weight: 10
`

func TestParseServices(t *testing.T) {
	path := "/web/modules/custom/my_module/my_module.services.yml"
	got := Parse([]byte(servicesYml), path, index.KindService)

	if len(got) != 3 {
		t.Fatalf("expected 3 services (aliases included, _defaults skipped), got %d", len(got))
	}

	mailer := got[0]
	if mailer.Name != "my_module.mailer" {
		t.Fatalf("unexpected first service %q", mailer.Name)
	}
	if mailer.Class != `Drupal\my_module\Mailer` {
		t.Errorf("Class = %q", mailer.Class)
	}
	if mailer.Parent != "base.mailer" {
		t.Errorf("Parent = %q", mailer.Parent)
	}
	if !reflect.DeepEqual(mailer.Arguments, []string{"@config.factory", "@entity_type.manager"}) {
		t.Errorf("Arguments = %v", mailer.Arguments)
	}
	if mailer.Tier != index.TierCustom {
		t.Errorf("Tier = %v, want custom", mailer.Tier)
	}
	if _, ok := mailer.Extra["tags"]; !ok {
		t.Error("uninterpreted tags key should land in Extra")
	}

	factory := got[1]
	if factory.Factory == "" {
		t.Error("factory should be captured")
	}

	alias := got[2]
	if alias.Alias != "my_module.mailer" {
		t.Errorf("Alias = %q, want my_module.mailer", alias.Alias)
	}
}

func TestParseRoutes(t *testing.T) {
	path := "/web/modules/custom/my_module/my_module.routing.yml"
	got := Parse([]byte(routingYml), path, index.KindRoute)

	if len(got) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(got))
	}
	settings := got[0]
	if settings.Name != "my_module.settings" {
		t.Errorf("Name = %q", settings.Name)
	}
	if settings.Path != "/admin/config/my-module" {
		t.Errorf("Path = %q", settings.Path)
	}
	if !strings.Contains(settings.Controller, "SettingsController") {
		t.Errorf("Controller = %q", settings.Controller)
	}
	if settings.Permission != "administer site configuration" {
		t.Errorf("Permission = %q", settings.Permission)
	}
}

func TestParseLinks(t *testing.T) {
	path := "/web/modules/custom/my_module/my_module.links.menu.yml"
	got := Parse([]byte(linksYml), path, index.KindLink)

	if len(got) != 1 {
		t.Fatalf("expected 1 link, got %d", len(got))
	}
	l := got[0]
	if l.Title != "My module" || l.Parent != "system.admin_config" || l.RouteName != "my_module.settings" {
		t.Errorf("unexpected link %+v", l)
	}
	if !reflect.DeepEqual(l.AppearsOn, []string{"my_module.settings", "my_module.report"}) {
		t.Errorf("AppearsOn = %v", l.AppearsOn)
	}
	if l.Extra["weight"] != "10" {
		t.Errorf("Extra[weight] = %q", l.Extra["weight"])
	}
}

// Re-parsing unchanged content must yield an identical entity list,
// positions and tier included.
func TestParseIsPure(t *testing.T) {
	path := "/web/modules/contrib/my_module/my_module.services.yml"
	first := Parse([]byte(servicesYml), path, index.KindService)
	second := Parse([]byte(servicesYml), path, index.KindService)
	if !reflect.DeepEqual(first, second) {
		t.Error("re-parse of unchanged content differs")
	}
}

// The line recorded for an entity must actually contain its name.
func TestSourceLineRoundTrip(t *testing.T) {
	cases := []struct {
		content string
		kind    index.Kind
	}{
		{servicesYml, index.KindService},
		{routingYml, index.KindRoute},
		{linksYml, index.KindLink},
	}
	for _, c := range cases {
		lines := strings.Split(c.content, "\n")
		for _, e := range Parse([]byte(c.content), "/web/modules/custom/m/m.yml", c.kind) {
			if e.SourceLine < 1 || e.SourceLine > len(lines) {
				t.Fatalf("%s: SourceLine %d out of range", e.Name, e.SourceLine)
			}
			if !strings.Contains(lines[e.SourceLine-1], e.Name) {
				t.Errorf("%s: line %d %q does not contain name", e.Name, e.SourceLine, lines[e.SourceLine-1])
			}
		}
	}
}

func TestMalformedYieldsEmpty(t *testing.T) {
	got := Parse([]byte("services:\n  broken: [unclosed\n"), "/web/x.services.yml", index.KindService)
	if len(got) != 0 {
		t.Errorf("malformed content should parse to nothing, got %d entities", len(got))
	}
}

func TestNonMappingRootYieldsEmpty(t *testing.T) {
	got := Parse([]byte("- just\n- a\n- list\n"), "/web/x.routing.yml", index.KindRoute)
	if len(got) != 0 {
		t.Errorf("non-mapping root should parse to nothing, got %d", len(got))
	}
}
