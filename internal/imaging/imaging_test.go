package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_DownscalesLongSide(t *testing.T) {
	data, mime, err := Normalize(testPNG(t, 300, 150), 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 100 || h != 50 {
		t.Errorf("result is %dx%d, want 100x50", w, h)
	}
}

func TestNormalize_SmallImageKeepsSize(t *testing.T) {
	data, _, err := Normalize(testPNG(t, 40, 60), 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 40 || h != 60 {
		t.Errorf("result is %dx%d, want unchanged 40x60", w, h)
	}
}

func TestNormalize_RejectsNonImage(t *testing.T) {
	if _, _, err := Normalize([]byte("not an image"), 100); err == nil {
		t.Fatal("want decode error for non-image input")
	}
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 3000, 1500, 1024, 1024, 512},
		{"portrait", 1500, 3000, 1024, 512, 1024},
		{"already small", 640, 480, 1024, 640, 480},
		{"square", 2048, 2048, 1024, 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitDimensions(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitDimensions(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestReadMeta_RejectsGarbage(t *testing.T) {
	if _, err := ReadMeta([]byte("definitely not a photo")); err == nil {
		t.Fatal("want error for bytes without metadata")
	}
}

func TestPromptContext(t *testing.T) {
	meta := &Meta{
		TakenAt:     time.Date(2024, 6, 14, 18, 30, 0, 0, time.UTC),
		HasDate:     true,
		Latitude:    51.50074,
		Longitude:   -0.12462,
		HasGPS:      true,
		CameraMake:  "Canon",
		CameraModel: "EOS R6",
	}

	got := meta.PromptContext()
	for _, want := range []string{"14 June 2024 at 18:30", "51.50074, -0.12462", "shot on a Canon EOS R6"} {
		if !strings.Contains(got, want) {
			t.Errorf("PromptContext() = %q, missing %q", got, want)
		}
	}

	if got := (&Meta{}).PromptContext(); got != "" {
		t.Errorf("empty meta PromptContext() = %q, want \"\"", got)
	}
}
