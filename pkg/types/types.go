package types

import "image"

// Box represents a normalized bounding box in YOLO convention: center
// coordinates plus width and height, all in [0,1] relative to the image
type Box struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Label is a normalized box tagged with its class id
type Label struct {
	Class int `json:"class"`
	Box   Box `json:"box"`
}

// Tuple returns the label geometry-first, class-last: cx, cy, w, h, class.
func (l Label) Tuple() [5]float64 {
	return [5]float64{l.Box.CX, l.Box.CY, l.Box.W, l.Box.H, float64(l.Class)}
}

// Sample is one augmented image together with the labels that survived
// the transform pipeline. A Sample produced by the engine always carries
// at least one label.
type Sample struct {
	Image  *image.NRGBA
	Labels []Label
}
