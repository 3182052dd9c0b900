package seamkit

import (
	"context"
	"image"
	"io"
)

// Process decodes the image read from r, resizes it and writes the encoded
// result into w. An empty format keeps the format of the source image.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer, codec Codec, format Format) error {
	src, srcFormat, err := codec.Decode(r)
	if err != nil {
		return err
	}
	return p.encodeResized(ctx, src, srcFormat, w, codec, format)
}

func (p *Processor) encodeResized(ctx context.Context, src image.Image, srcFormat Format, w io.Writer, codec Codec, format Format) error {
	if format == "" {
		format = srcFormat
	}
	res, err := p.Resize(ctx, src)
	if err != nil {
		return err
	}
	return codec.Encode(w, res, format)
}

// FitSource returns a copy of the processor where a zero NewWidth or
// NewHeight is replaced with the matching dimension of bounds.
func (p *Processor) FitSource(bounds image.Rectangle) *Processor {
	cp := *p
	if cp.NewWidth == 0 {
		cp.NewWidth = bounds.Dx()
	}
	if cp.NewHeight == 0 {
		cp.NewHeight = bounds.Dy()
	}
	return &cp
}
