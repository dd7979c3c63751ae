// Package export turns a computed survey polygon into a GeoJSON document
// that GIS tools can load directly.
package export

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"survey-plan/internal/geometry"
	"survey-plan/internal/survey"
)

const (
	FileName    = "pelan_lengkap.geojson"
	ContentType = "application/json"
)

// Property keys and values written to the features.
const (
	PropKind     = "Jenis"
	PropArea     = "Luas_m2"
	PropStation  = "STN"
	KindArea     = "Kawasan"
	KindBoundary = "Sempadan"
)

var ErrNoAreaFeature = errors.New("feature collection has no area feature")

// BuildFeatureCollection returns the area polygon, the closed boundary line
// and one point per station, in that order.
func BuildFeatureCollection(poly orb.Polygon, boundary orb.LineString, stations []survey.Station, area float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	areaFeature := geojson.NewFeature(poly)
	areaFeature.Properties[PropKind] = KindArea
	areaFeature.Properties[PropArea] = Round3(area)
	fc.Append(areaFeature)

	line := geojson.NewFeature(boundary)
	line.Properties[PropKind] = KindBoundary
	fc.Append(line)

	for _, s := range stations {
		f := geojson.NewFeature(geometry.Point(s))
		f.Properties[PropStation] = s.ID
		fc.Append(f)
	}
	return fc
}

// FromPolygon is BuildFeatureCollection over a built polygon.
func FromPolygon(p *geometry.Polygon) *geojson.FeatureCollection {
	return BuildFeatureCollection(p.Orb(), p.Boundary(), p.Stations(), p.Area())
}

func Marshal(fc *geojson.FeatureCollection) ([]byte, error) {
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return b, nil
}

// AreaFromJSON reads back the rounded area stored on the area feature.
func AreaFromJSON(data []byte) (float64, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("unmarshal feature collection: %w", err)
	}
	for _, f := range fc.Features {
		if f.Properties.MustString(PropKind, "") != KindArea {
			continue
		}
		v, ok := f.Properties[PropArea].(float64)
		if !ok {
			return 0, fmt.Errorf("area feature has no numeric %s", PropArea)
		}
		return v, nil
	}
	return 0, ErrNoAreaFeature
}

// Round3 rounds half away from zero to 3 decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
