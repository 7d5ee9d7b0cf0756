// Package frame defines the frame data model shared by sources, the
// processing pipeline, and the recording sink.
package frame

import (
	"fmt"
	"image"
	"time"

	xdraw "golang.org/x/image/draw"
)

// SourceKind identifies the family of a data source.
type SourceKind string

const (
	SourceCamera        SourceKind = "camera"
	SourceImageSequence SourceKind = "image_sequence"
	SourceVolumetric    SourceKind = "volumetric"
	SourceScreen        SourceKind = "screen"
)

// ColorMode describes the pixel layout a source produces.
type ColorMode string

const (
	ColorRGB  ColorMode = "RGB"
	ColorGray ColorMode = "GRAY"
)

// SourceInfo describes a data source. It is produced once when the
// source is opened and is read-only afterwards.
type SourceInfo struct {
	Name         string     `json:"name"`
	Kind         SourceKind `json:"kind"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	FPS          float64    `json:"fps"`
	SupportsSeek bool       `json:"supports_seek"`
	TotalFrames  int        `json:"total_frames"` // 0 when unknown (live sources)
	ColorMode    ColorMode  `json:"color_mode"`
}

// Resolution returns the source resolution as a "WxH" string.
func (si *SourceInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", si.Width, si.Height)
}

// Frame is a single unit of image data plus metadata. A frame is never
// mutated once published; buffers hold independent copies, never
// aliases.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
	Number    int64  // sequence number assigned by the acquisition loop
	Source    string // producing source or transform name
}

// Clone returns a deep copy of the frame, including its pixel data.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Image = CloneImage(f.Image)
	return &c
}

// Bounds returns the pixel bounds of the frame, or the zero rectangle
// for a frame without image data.
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// CloneImage deep-copies the pixel data of img. Common in-memory
// formats are copied directly; anything else is converted into an
// owned RGBA image.
func CloneImage(img image.Image) image.Image {
	switch src := img.(type) {
	case nil:
		return nil
	case *image.RGBA:
		return &image.RGBA{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
	case *image.NRGBA:
		return &image.NRGBA{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
	case *image.Gray:
		return &image.Gray{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
	case *image.Gray16:
		return &image.Gray16{Pix: append([]uint8(nil), src.Pix...), Stride: src.Stride, Rect: src.Rect}
	default:
		b := img.Bounds()
		dst := image.NewRGBA(b)
		xdraw.Copy(dst, b.Min, img, b, xdraw.Src, nil)
		return dst
	}
}
