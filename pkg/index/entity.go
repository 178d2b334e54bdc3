package index

import "strings"

// Kind identifies which definition file family an entity came from.
type Kind string

const (
	KindService Kind = "service"
	KindRoute   Kind = "route"
	KindLink    Kind = "link"
)

// Tier classifies the origin of a definition. Higher values are more
// trusted: a name defined by the site's own custom code outranks the
// same name from contrib or core.
type Tier int

const (
	TierUnknown Tier = iota
	TierCore
	TierContrib
	TierCustom
)

func (t Tier) String() string {
	switch t {
	case TierCustom:
		return "custom"
	case TierContrib:
		return "contrib"
	case TierCore:
		return "core"
	default:
		return "unknown"
	}
}

// tierMarkers is checked in order; the first marker found in the path
// wins, so a path under both core/ and modules/custom/ is custom.
var tierMarkers = []struct {
	marker string
	tier   Tier
}{
	{"/modules/custom/", TierCustom},
	{"/modules/contrib/", TierContrib},
	{"/core/", TierCore},
}

// TierOf classifies an absolute path. Paths matching no marker fall
// back to TierUnknown, the lowest trust level.
func TierOf(path string) Tier {
	// Leading slash so markers also hit at the start of relative paths.
	p := "/" + strings.ReplaceAll(path, "\\", "/")
	for _, m := range tierMarkers {
		if strings.Contains(p, m.marker) {
			return m.tier
		}
	}
	return TierUnknown
}

// Entity is one named record parsed from a definition file. A single
// flat struct covers all three kinds; kind-specific fields are zero
// for the kinds they do not apply to.
type Entity struct {
	Kind Kind
	Name string

	SourceFile string
	SourceLine int
	Tier       Tier

	// Service fields.
	Class     string
	Parent    string
	Arguments []string
	Factory   string
	Alias     string

	// Route fields.
	Path       string
	Controller string
	Permission string

	// Link fields.
	Title     string
	RouteName string
	AppearsOn []string

	// Attribute keys we do not interpret, kept verbatim for display.
	Extra map[string]string
}
