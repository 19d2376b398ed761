package scenario

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"apocalypse.sim/internal/sim/region"
)

// ImportGeoJSON turns the polygon features of a collection into places. All
// features are stretched together onto a width x height grid. Each place's
// density is its density property rescaled over the collection to 0.1..1,
// times baseDensity; without the property every place gets baseDensity.
// Parts smaller than opts.MinArea (in cells) are dropped.
func ImportGeoJSON(raw []byte, width, height int, opts GeoJSONSpec, baseDensity float64) ([]*region.Place, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var bound orb.Bound
	first := true
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		if first {
			bound = f.Geometry.Bound()
			first = false
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}
		if opts.DensityProperty != "" {
			d := f.Properties.MustFloat64(opts.DensityProperty, 0)
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
	}
	if first {
		return nil, fmt.Errorf("geojson: no polygon features")
	}

	stretch := func(ring orb.Ring) [][2]float64 {
		out := make([][2]float64, 0, len(ring))
		for _, pt := range ring {
			out = append(out, [2]float64{
				scale(pt.X(), bound.Min.X(), bound.Max.X(), float64(width)),
				scale(pt.Y(), bound.Min.Y(), bound.Max.Y(), float64(height)),
			})
		}
		return out
	}
	density := func(f *geojson.Feature) float64 {
		if opts.DensityProperty == "" || hi <= lo {
			return baseDensity
		}
		d := f.Properties.MustFloat64(opts.DensityProperty, lo)
		return ((d-lo)/(hi-lo)*0.9 + 0.1) * baseDensity
	}

	var out []*region.Place
	for i, f := range fc.Features {
		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			continue
		}
		name := fmt.Sprintf("feature-%d", i)
		if opts.NameProperty != "" {
			name = f.Properties.MustString(opts.NameProperty, name)
		}
		d := density(f)
		for _, poly := range polys {
			if len(poly) == 0 {
				continue
			}
			vert := stretch(poly[0])
			pl := region.NewPlace(name, vert, d)
			if math.Abs(planar.Area(pl.Polygon())) < opts.MinArea {
				continue
			}
			out = append(out, pl)
		}
	}
	return out, nil
}

func scale(v, min, max, size float64) float64 {
	if max <= min {
		return 0
	}
	return (v - min) / (max - min) * size
}
