package types

import (
	"encoding/json"
	"fmt"
)

// BBoxPixels is an axis-aligned bounding box in source-image pixel space.
type BBoxPixels struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BBoxYOLO is a center-format bounding box normalized to [0,1].
type BBoxYOLO struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// ImageSize carries the source dimensions the service observed for a request.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one labeled, localized, confidence-scored object reported by
// the inference service. Produced only by decoding a service response and
// immutable once created.
type Detection struct {
	Index      int        `json:"index"`
	Image      ImageSize  `json:"image"`
	Label      string     `json:"label"`
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	BBoxPixels BBoxPixels `json:"bbox_pixels"`
	BBoxYOLO   BBoxYOLO   `json:"bbox_yolo"`
}

// UnmarshalJSON decodes a detection record and validates that every required
// field is present. The service always emits the full record; a missing
// member means protocol drift and must surface at decode time instead of as
// a zero value downstream.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index      *int        `json:"index"`
		Image      *ImageSize  `json:"image"`
		Label      *string     `json:"label"`
		ClassID    *int        `json:"class_id"`
		Confidence *float64    `json:"confidence"`
		BBoxPixels *BBoxPixels `json:"bbox_pixels"`
		BBoxYOLO   *BBoxYOLO   `json:"bbox_yolo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewError(ErrDecode, "malformed detection record").WithCause(err)
	}

	required := []struct {
		name string
		ok   bool
	}{
		{"index", raw.Index != nil},
		{"label", raw.Label != nil},
		{"class_id", raw.ClassID != nil},
		{"confidence", raw.Confidence != nil},
		{"bbox_pixels", raw.BBoxPixels != nil},
		{"bbox_yolo", raw.BBoxYOLO != nil},
	}
	for _, f := range required {
		if !f.ok {
			return NewError(ErrDecode, fmt.Sprintf("detection record missing %q", f.name))
		}
	}

	d.Index = *raw.Index
	d.Label = *raw.Label
	d.ClassID = *raw.ClassID
	d.Confidence = *raw.Confidence
	d.BBoxPixels = *raw.BBoxPixels
	d.BBoxYOLO = *raw.BBoxYOLO
	// image dims are informational and absent from older service builds
	if raw.Image != nil {
		d.Image = *raw.Image
	}
	return nil
}
