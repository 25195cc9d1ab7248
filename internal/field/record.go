package field

import (
	"fmt"
	"io"
	"math"

	"github.com/gocarina/gocsv"
)

// Record is one CSV row of sampled output.
type Record struct {
	X     float32 `csv:"x"`
	Y     float32 `csv:"y"`
	Z     float32 `csv:"z"`
	Value float32 `csv:"value"`
	DX    float32 `csv:"dx"`
	DY    float32 `csv:"dy"`
	DZ    float32 `csv:"dz"`
}

// Records pairs points with their samples.
func Records(points [][3]float32, samples []Sample) []Record {
	records := make([]Record, len(points))
	for i, p := range points {
		s := samples[i]
		records[i] = Record{
			X: p[0], Y: p[1], Z: p[2],
			Value: s.Value,
			DX:    s.Gradient[0], DY: s.Gradient[1], DZ: s.Gradient[2],
		}
	}
	return records
}

// Points returns the positions of records, e.g. to resample a previous run.
func Points(records []Record) [][3]float32 {
	points := make([][3]float32, len(records))
	for i, r := range records {
		points[i] = [3]float32{r.X, r.Y, r.Z}
	}
	return points
}

// VertexRecord is one CSV row of a displaced surface.
type VertexRecord struct {
	X  float32 `csv:"x"`
	Y  float32 `csv:"y"`
	Z  float32 `csv:"z"`
	NX float32 `csv:"nx"`
	NY float32 `csv:"ny"`
	NZ float32 `csv:"nz"`
	TX float32 `csv:"tx"`
	TY float32 `csv:"ty"`
	TZ float32 `csv:"tz"`
}

// VertexRecords flattens displaced vertices.
func VertexRecords(vertices []Vertex) []VertexRecord {
	records := make([]VertexRecord, len(vertices))
	for i, v := range vertices {
		records[i] = VertexRecord{
			X: v.Position[0], Y: v.Position[1], Z: v.Position[2],
			NX: v.Normal[0], NY: v.Normal[1], NZ: v.Normal[2],
			TX: v.Tangent[0], TY: v.Tangent[1], TZ: v.Tangent[2],
		}
	}
	return records
}

// FlowRecord is one CSV row of a flow field.
type FlowRecord struct {
	X  float32 `csv:"x"`
	Y  float32 `csv:"y"`
	Z  float32 `csv:"z"`
	VX float32 `csv:"vx"`
	VY float32 `csv:"vy"`
	VZ float32 `csv:"vz"`
}

// FlowRecords flattens particles.
func FlowRecords(particles []Particle) []FlowRecord {
	records := make([]FlowRecord, len(particles))
	for i, p := range particles {
		records[i] = FlowRecord{
			X: p.Position[0], Y: p.Position[1], Z: p.Position[2],
			VX: p.Velocity[0], VY: p.Velocity[1], VZ: p.Velocity[2],
		}
	}
	return records
}

// WriteCSV writes records with a header row taken from their csv tags.
func WriteCSV[T any](w io.Writer, records []T) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	return nil
}

// ReadCSV parses sample records. Only the x, y and z columns are required, so
// any CSV written by WriteCSV can be read back as a point list.
func ReadCSV(r io.Reader) ([]Record, error) {
	var records []Record
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	return records, nil
}

// Line returns n points evenly spaced from a to b inclusive.
func Line(a, b [3]float32, n int) [][3]float32 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return [][3]float32{a}
	}
	points := make([][3]float32, n)
	for i := range n {
		t := float32(i) / float32(n-1)
		points[i] = [3]float32{
			a[0] + (b[0]-a[0])*t,
			a[1] + (b[1]-a[1])*t,
			a[2] + (b[2]-a[2])*t,
		}
	}
	return points
}

// Grid returns resolution×resolution points covering the XZ square
// [-0.5, 0.5]² row by row, Z outer.
func Grid(resolution int) [][3]float32 {
	if resolution <= 0 {
		return nil
	}
	points := make([][3]float32, 0, resolution*resolution)
	step := float32(1) / float32(max(resolution-1, 1))
	for z := range resolution {
		for x := range resolution {
			points = append(points, [3]float32{float32(x)*step - 0.5, 0, float32(z)*step - 0.5})
		}
	}
	return points
}

// SpherePoints returns n points spread evenly over the unit sphere along a golden
// spiral, from the north pole down.
func SpherePoints(n int) [][3]float32 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return [][3]float32{{0, 1, 0}}
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	points := make([][3]float32, n)
	for i := range n {
		y := 1 - 2*float64(i)/float64(n-1)
		r := math.Sqrt(max(0, 1-y*y))
		theta := golden * float64(i)
		points[i] = [3]float32{float32(math.Cos(theta) * r), float32(y), float32(math.Sin(theta) * r)}
	}
	return points
}
