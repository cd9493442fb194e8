package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/geometry"
	"github.com/inamate/canvasflow/internal/surface"
)

// Chunk is an overlay erasure region applied after every object has been
// painted, in device coordinates. A circular chunk punches out a circle
// of Radius/2 centred at (X, Y); any other chunk clears its rectangle.
type Chunk struct {
	ID       document.ID `json:"id"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Radius   float64     `json:"radius"`
	Circular bool        `json:"isCircular"`
}

// DecodeChunk reads a chunk record from its JSON wire form.
func DecodeChunk(data []byte) (Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return Chunk{}, fmt.Errorf("%w: %v", document.ErrInvalidArgumentShape, err)
	}
	return c, nil
}

func (c Chunk) erase(s surface.Surface) error {
	if !c.Circular {
		s.ClearRect(c.X, c.Y, c.Width, c.Height)
		return nil
	}
	s.SetComposite(surface.DestinationOut)
	defer s.SetComposite(surface.SourceOver)
	return s.Fill(geometry.Circle(c.X, c.Y, math.Abs(c.Radius)/2), "black")
}
