package input

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// EncodeGeometry converts a shapefile polygon to a little-endian EWKB
// MultiPolygon. Points and unsupported or empty shapes yield nil.
func EncodeGeometry(shape shp.Shape, srid int) ([]byte, error) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil {
		return nil, nil
	}

	mp := multiPolygon(p)
	if mp == nil {
		return nil, nil
	}

	data, err := ewkb.Marshal(mp.SetSRID(srid), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "input: encode geometry")
	}
	return data, nil
}

// multiPolygon turns every ring of p into its own polygon. Parcel
// shapefiles store one outer ring per part.
func multiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("input: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("input: skipping malformed polygon", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
