package seamkit

import (
	"bufio"
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is an encoded image container format.
type Format string

// The supported image formats.
const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	WEBP Format = "webp"
	QOI  Format = "qoi"
)

// zstdExt marks a zstd compressed image stream.
const zstdExt = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var extensions = map[string]Format{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".gif":  GIF,
	".bmp":  BMP,
	".tif":  TIFF,
	".tiff": TIFF,
	".webp": WEBP,
	".qoi":  QOI,
}

// FormatFromPath returns the image format matching the file extension and
// whether the file is zstd compressed (e.g. "photo.png.zst").
func FormatFromPath(path string) (Format, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	compressed := ext == zstdExt
	if compressed {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	f, ok := extensions[ext]
	if !ok {
		return "", false, errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
	return f, compressed, nil
}

// Codec translates between encoded image bytes and rasters.
type Codec struct {
	// Quality is used by the lossy encoders, in the [1, 100] range.
	Quality  int
	Lossless bool
	// Compress wraps the encoded image into a zstd stream.
	Compress bool
}

// DefaultCodec encodes JPEG and WebP images at quality 100.
var DefaultCodec = Codec{Quality: 100}

// Decode reads an encoded image. Zstd compressed streams are unwrapped
// transparently and the EXIF orientation of JPEG images is applied.
func (c Codec) Decode(r io.Reader) (*image.NRGBA, Format, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", errors.Wrap(ErrInvalidInput, err.Error())
		}
		defer zr.Close()
		return c.decode(zr)
	}
	return c.decode(br)
}

func (c Codec) decode(r io.Reader) (*image.NRGBA, Format, error) {
	var buf bytes.Buffer
	tee := io.TeeReader(r, &buf)

	_, name, err := image.DecodeConfig(tee)
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "could not decode the image: %v", err)
	}
	src, err := imaging.Decode(io.MultiReader(&buf, r), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "could not decode the image: %v", err)
	}
	return imaging.Clone(src), Format(name), nil
}

// Encode writes img into w using the requested format.
func (c Codec) Encode(w io.Writer, img image.Image, format Format) (err error) {
	if c.Compress {
		zw, zerr := zstd.NewWriter(w)
		if zerr != nil {
			return errors.Wrap(zerr, "could not create the zstd writer")
		}
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = 100
	}

	switch format {
	case JPEG, "jpg", "":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case GIF:
		return imaging.Encode(w, img, imaging.GIF)
	case BMP:
		return imaging.Encode(w, img, imaging.BMP)
	case TIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case WEBP:
		return webp.Encode(w, img, &webp.Options{Lossless: c.Lossless, Quality: float32(quality)})
	case QOI:
		return qoi.Encode(w, img)
	}
	return errors.Wrapf(ErrUnsupportedFormat, "%q", format)
}
