package render

import (
	"fmt"
	"sync"
)

// BasemapKind selects the background tile provider for rendered pages.
type BasemapKind string

const (
	BasemapNone          BasemapKind = "none"
	BasemapOSM           BasemapKind = "osm"
	BasemapPositron      BasemapKind = "positron"
	BasemapDarkMatter    BasemapKind = "dark-matter"
	BasemapEsriSatellite BasemapKind = "esri-satellite"
	BasemapEsriStreet    BasemapKind = "esri-street"
	BasemapEsriTopo      BasemapKind = "esri-topo"
)

// Basemap is the shared background-map resource for one batch run. It is
// acquired once during preparation, treated as read-only while records
// render, and released exactly once during teardown.
type Basemap interface {
	// Kind returns the provider this basemap was resolved from.
	Kind() BasemapKind
	// TileURL returns the XYZ tile URL template, empty for BasemapNone.
	TileURL() string
	// Attribution returns the provider attribution line for page footers.
	Attribution() string
	// Close releases the resource. Safe to call more than once; only the
	// first call has effect.
	Close() error
}

// BasemapProvider resolves a BasemapKind into a live Basemap resource.
type BasemapProvider interface {
	Acquire(kind BasemapKind) (Basemap, error)
}

// tileSpec is one entry of the builtin XYZ registry.
type tileSpec struct {
	url         string
	attribution string
	zMin, zMax  int
}

// Builtin XYZ tile registry. URLs match the common public endpoints; the
// zoom bounds are carried for renderers that embed them in page metadata.
var tileRegistry = map[BasemapKind]tileSpec{
	BasemapOSM: {
		url:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		attribution: "© OpenStreetMap contributors",
		zMax:        19,
	},
	BasemapPositron: {
		url:         "https://a.basemaps.cartocdn.com/light_all/{z}/{x}/{y}@2x.png",
		attribution: "© CARTO © OpenStreetMap contributors",
		zMax:        20,
	},
	BasemapDarkMatter: {
		url:         "https://a.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}@2x.png",
		attribution: "© CARTO © OpenStreetMap contributors",
		zMax:        20,
	},
	BasemapEsriSatellite: {
		url:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		attribution: "© Esri World Imagery",
		zMax:        17,
	},
	BasemapEsriStreet: {
		url:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}",
		attribution: "© Esri World Street Map",
		zMax:        17,
	},
	BasemapEsriTopo: {
		url:         "https://services.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
		attribution: "© Esri World Topo Map",
		zMax:        20,
	},
}

// staticBasemap is the builtin Basemap implementation: a resolved descriptor
// with a close-once guard so teardown accounting stays honest even when both
// a deferred release and an explicit one fire.
type staticBasemap struct {
	kind BasemapKind
	spec tileSpec

	closeOnce sync.Once
	onClose   func()
}

func (b *staticBasemap) Kind() BasemapKind   { return b.kind }
func (b *staticBasemap) TileURL() string     { return b.spec.url }
func (b *staticBasemap) Attribution() string { return b.spec.attribution }

func (b *staticBasemap) Close() error {
	b.closeOnce.Do(func() {
		if b.onClose != nil {
			b.onClose()
		}
	})
	return nil
}

// StaticProvider resolves basemaps from the builtin registry. The zero value
// is ready to use.
type StaticProvider struct {
	// OnRelease, when set, is invoked once per acquired basemap on its first
	// Close. Tests use it to assert release-exactly-once behavior.
	OnRelease func(kind BasemapKind)
}

// Acquire implements BasemapProvider. The switch over kinds is exhaustive:
// unknown kinds are an error, not a silent fallback.
func (p *StaticProvider) Acquire(kind BasemapKind) (Basemap, error) {
	switch kind {
	case BasemapNone:
		return nil, nil
	case BasemapOSM, BasemapPositron, BasemapDarkMatter,
		BasemapEsriSatellite, BasemapEsriStreet, BasemapEsriTopo:
		b := &staticBasemap{kind: kind, spec: tileRegistry[kind]}
		if p.OnRelease != nil {
			b.onClose = func() { p.OnRelease(kind) }
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown basemap kind %q", string(kind))
	}
}
