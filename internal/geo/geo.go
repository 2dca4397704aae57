package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/ballistics/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Simulation space is a local frame in centimetres. Stored geometry is always
// EPSG:3857 metres, offset from the anchor of the scene, so spatial databases
// can place shots on a map and SQLite can still round-trip the WKB.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// unitsPerMetre converts simulation units to metres.
const unitsPerMetre = 100

// Coords3857From4326 converts a longitude and latitude to a web mercator point.
func Coords3857From4326(longitude, latitude float64) (geom.Point, error) {
	if math.Abs(latitude) > 90 || math.Abs(longitude) > 180 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}}), nil
}

// Anchor ties the local simulation frame to a place on earth.
type Anchor struct {
	Latitude  float64
	Longitude float64
	origin    geom.XY
}

// NewAnchor places the simulation origin at the given WGS84 location.
func NewAnchor(latitude, longitude float64) (Anchor, error) {
	p, err := Coords3857From4326(longitude, latitude)
	if err != nil {
		return Anchor{}, err
	}
	xy, _ := p.XY()
	return Anchor{Latitude: latitude, Longitude: longitude, origin: xy}, nil
}

// Origin returns the anchor in EPSG:3857.
func (a Anchor) Origin() geom.XY {
	return a.origin
}

// Project converts a local position to EPSG:3857 metres and elevation.
func (a Anchor) Project(v core.Vec3) (x, y, z float64) {
	return a.origin.X + v.X()/unitsPerMetre, a.origin.Y + v.Y()/unitsPerMetre, v.Z() / unitsPerMetre
}

// Unproject is the inverse of Project.
func (a Anchor) Unproject(x, y, z float64) core.Vec3 {
	return core.Vec3{(x - a.origin.X) * unitsPerMetre, (y - a.origin.Y) * unitsPerMetre, z * unitsPerMetre}
}

// Point converts a local position to an XYZ point.
func (a Anchor) Point(v core.Vec3) geom.Point {
	x, y, z := a.Project(v)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Z:    z,
		Type: geom.DimXYZ,
	})
}

// LocalFromPoint converts a stored point back to a local position.
func (a Anchor) LocalFromPoint(p geom.Point) core.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return a.Unproject(c.XY.X, c.XY.Y, c.Z)
}

// Trajectory converts trajectory samples to a LineStringZM with the sample
// time as M. Fewer than two samples yield an empty geometry.
func (a Anchor) Trajectory(points []core.TrajectoryPoint) geom.Geometry {
	if len(points) < 2 {
		return geom.Geometry{}
	}
	coords := make([]float64, 0, len(points)*4)
	for _, tp := range points {
		x, y, z := a.Project(tp.Position)
		coords = append(coords, x, y, z, tp.Time)
	}
	seq := geom.NewSequence(coords, geom.DimXYZM)
	return geom.NewLineString(seq).AsGeometry()
}

// TrajectoryFromGeometry is the inverse of Trajectory.
func (a Anchor) TrajectoryFromGeometry(g geom.Geometry) []core.TrajectoryPoint {
	ls, ok := g.AsLineString()
	if !ok {
		return nil
	}
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	out := make([]core.TrajectoryPoint, seq.Length())
	for i := range seq.Length() {
		c := seq.Get(i)
		out[i] = core.TrajectoryPoint{
			Position: a.Unproject(c.XY.X, c.XY.Y, c.Z),
			Time:     c.M,
		}
	}
	return out
}

// FormatVec3 renders v as "x,y,z".
func FormatVec3(v core.Vec3) string {
	return strconv.FormatFloat(v.X(), 'f', -1, 64) + "," +
		strconv.FormatFloat(v.Y(), 'f', -1, 64) + "," +
		strconv.FormatFloat(v.Z(), 'f', -1, 64)
}

// ParseVec3 parses "x,y" or "x,y,z" into a vector.
func ParseVec3(s string) (core.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vec3{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}
	var v core.Vec3
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
		}
		v[i] = f
	}
	return v, nil
}
