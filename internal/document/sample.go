package document

import (
	"github.com/inamate/canvasflow/internal/typeid"
)

// NewSampleScene returns a small scene exercising most object types. Ids are
// freshly generated on every call.
func NewSampleScene() []*Object {
	return []*Object{
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Rectangle{},
			Props: Props{
				X: Ptr(0.0), Y: Ptr(0.0), Width: Ptr(1280.0), Height: Ptr(720.0),
				Fill:   Ptr("#1a1a2e"),
				ZIndex: Ptr(-1.0),
			},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Rectangle{},
			Props: Props{
				X: Ptr(200.0), Y: Ptr(200.0), Width: Ptr(150.0), Height: Ptr(100.0),
				Fill:         Ptr("#e94560"),
				Stroke:       &Stroke{Fill: Ptr("#000000"), Width: Ptr(2.0)},
				BorderRadius: Ptr(12.0),
			},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Circle{},
			Props: Props{
				X: Ptr(500.0), Y: Ptr(300.0), Width: Ptr(120.0), Height: Ptr(120.0),
				Fill:   Ptr("#0f3460"),
				Stroke: &Stroke{Fill: Ptr("#e94560"), Width: Ptr(3.0)},
				ZIndex: Ptr(1.0),
			},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Triangle{},
			Props: Props{
				X: Ptr(700.0), Y: Ptr(250.0), Width: Ptr(100.0), Height: Ptr(100.0),
				Fill: Ptr("#16c79a"),
			},
		},
		{
			ID: ID(typeid.NewObjectID()),
			Shape: Polygon{Points: []Point{
				{X: 900, Y: 200}, {X: 980, Y: 260}, {X: 950, Y: 350}, {X: 850, Y: 350}, {X: 820, Y: 260},
			}},
			Props: Props{Fill: Ptr("#f5a623")},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Path{D: Ptr("M100 500 Q 200 400 300 500 T 500 500")},
			Props: Props{
				Fill:   Ptr("transparent"),
				Stroke: &Stroke{Fill: Ptr("#ffffff"), Width: Ptr(4.0)},
			},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Line{From: &Point{X: 100, Y: 600}, To: &Point{X: 1180, Y: 600}},
			Props: Props{Stroke: &Stroke{Fill: Ptr("#888888"), Width: Ptr(2.0)}},
		},
		{
			ID:    ID(typeid.NewObjectID()),
			Shape: Text{Content: Ptr("canvasflow")},
			Props: Props{
				X: Ptr(100.0), Y: Ptr(80.0),
				Fill: Ptr("#ffffff"),
				Font: &Font{Family: Ptr("sans-serif"), Size: Ptr(48.0)},
			},
		},
	}
}
