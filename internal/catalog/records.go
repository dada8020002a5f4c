package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/delta10/layer-catalog/internal/timedim"
	"github.com/delta10/layer-catalog/internal/utils"
	"github.com/delta10/layer-catalog/internal/wms"
)

// DefaultBounds is the full-globe extent used when a layer advertises no
// usable EPSG:4326 bounding box.
var DefaultBounds = [4]float64{-180, -90, 180, 90}

const (
	boundsCRS         = "EPSG:4326"
	timeDimensionName = "time"
	temporalUnits     = "ISO8601"
)

// Record is one requestable leaf layer, enriched with the service endpoint,
// its geographic extent and, for temporal layers, the resolved time axis.
type Record struct {
	Name    string      `json:"name"`
	Title   string      `json:"title"`
	URL     string      `json:"url"`
	BBox    [4]float64  `json:"bbox"`
	Default *time.Time  `json:"default_time,omitempty"`
	Times   []time.Time `json:"times,omitempty"`
}

// BuildOptions control record construction.
type BuildOptions struct {
	// Excluded lists layer names to skip, matched exactly.
	Excluded []string

	// Limit bounds the instants generated per interval, -1 meaning no bound.
	Limit int

	// Sorted orders every time axis chronologically.
	Sorted bool
}

// DefaultBuildOptions returns the options used by the service when a
// request does not override them.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Excluded: DefaultExcluded(),
		Limit:    timedim.DefaultLimit,
		Sorted:   true,
	}
}

// DefaultExcluded returns the auxiliary layer names that carry no data of
// their own and are skipped by default.
func DefaultExcluded() []string {
	return []string{"background", "basemap", "grid", "boundary", "ocean", "graticule"}
}

// ServiceEndpoint returns the GetMap URL advertised by the document: the
// HTTP GET resource of the first DCP binding. Later bindings are ignored.
// Empty when the document does not advertise one.
func ServiceEndpoint(doc *wms.Capabilities) string {
	bindings := doc.Capability.Request.GetMap.DCPType
	if len(bindings) == 0 {
		return ""
	}

	return bindings[0].HTTP.Get.OnlineResource.Href
}

// LayerBounds returns the extent of the first EPSG:4326 bounding box the
// layer declares with four parseable coordinates, or the full globe when
// there is none.
func LayerBounds(layer *wms.Layer) [4]float64 {
	for _, box := range layer.BoundingBox {
		if box.CRS != boundsCRS {
			continue
		}

		bounds, err := parseBounds(box)
		if err != nil {
			continue
		}

		return bounds
	}

	return DefaultBounds
}

func parseBounds(box wms.BoundingBox) ([4]float64, error) {
	var bounds [4]float64

	for i, text := range []string{box.Minx, box.Miny, box.Maxx, box.Maxy} {
		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return bounds, err
		}
		bounds[i] = value
	}

	return bounds, nil
}

// BuildRecords converts flattened leaves into records, all sharing the
// given endpoint URL. Layers named in opts.Excluded are skipped. When a
// leaf declares a dimension named "time" (the first such declaration
// wins), the record carries the dimension's resolved default instant and,
// for ISO8601 units, its enumerated time axis.
func BuildRecords(leaves []*wms.Layer, endpoint string, opts BuildOptions) ([]Record, error) {
	records := make([]Record, 0, len(leaves))

	for _, leaf := range leaves {
		if utils.StringInSlice(leaf.Name, opts.Excluded) {
			continue
		}

		record := Record{
			Name:  leaf.Name,
			Title: leaf.Title,
			URL:   endpoint,
			BBox:  LayerBounds(leaf),
		}

		if dimension, ok := timeDimension(leaf); ok {
			if dimension.Default != "" {
				instant, err := timedim.ResolveInstant(dimension.Default)
				if err != nil {
					return nil, fmt.Errorf("layer %q: resolve default instant: %w", leaf.Name, err)
				}
				record.Default = &instant
			}

			if dimension.Units == temporalUnits {
				times, err := timedim.EnumerateInstants(dimension.Value, opts.Limit, opts.Sorted)
				if err != nil {
					return nil, fmt.Errorf("layer %q: enumerate time axis: %w", leaf.Name, err)
				}
				record.Times = times
			}
		}

		records = append(records, record)
	}

	return records, nil
}

func timeDimension(layer *wms.Layer) (wms.Dimension, bool) {
	for _, dimension := range layer.Dimension {
		if dimension.Name == timeDimensionName {
			return dimension, true
		}
	}

	return wms.Dimension{}, false
}
