package imaging

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// Meta is the EXIF context of a photo that is worth mentioning to the
// drafting model.
type Meta struct {
	TakenAt     time.Time
	HasDate     bool
	Latitude    float64
	Longitude   float64
	HasGPS      bool
	CameraMake  string
	CameraModel string
}

// ReadMeta extracts EXIF metadata from an encoded image. Images without
// readable metadata return an error; callers treat that as "no context".
func ReadMeta(data []byte) (*Meta, error) {
	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode exif metadata: %w", err)
	}

	meta := &Meta{
		CameraMake:  strings.TrimSpace(exif.Make),
		CameraModel: strings.TrimSpace(exif.Model),
	}

	if lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude(); lat != 0 || lon != 0 {
		meta.Latitude = lat
		meta.Longitude = lon
		meta.HasGPS = true
	}

	// Capture time fallback chain: original, then create, then modify.
	switch {
	case !exif.DateTimeOriginal().IsZero():
		meta.TakenAt = exif.DateTimeOriginal()
		meta.HasDate = true
	case !exif.CreateDate().IsZero():
		meta.TakenAt = exif.CreateDate()
		meta.HasDate = true
	case !exif.ModifyDate().IsZero():
		meta.TakenAt = exif.ModifyDate()
		meta.HasDate = true
	}

	return meta, nil
}

// PromptContext renders the metadata as a sentence fragment for a drafting
// prompt, or "" when nothing useful was found.
func (m *Meta) PromptContext() string {
	var parts []string
	if m.HasDate {
		parts = append(parts, "taken on "+m.TakenAt.Format("2 January 2006 at 15:04"))
	}
	if m.HasGPS {
		parts = append(parts, fmt.Sprintf("located at %.5f, %.5f", m.Latitude, m.Longitude))
	}
	if m.CameraMake != "" || m.CameraModel != "" {
		camera := strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
		parts = append(parts, "shot on a "+camera)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Photo context: " + strings.Join(parts, "; ") + "."
}
