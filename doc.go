/*
Package seamkit is a content aware image resize library. It shrinks or enlarges
an image by removing or inserting seams, connected paths of the least important
pixels, so the salient parts of the image survive the resize untouched.

The engine works on decoded rasters. The Codec type translates encoded images
(JPEG, PNG, GIF, BMP, TIFF, WebP, QOI, optionally zstd compressed) to and from
rasters, while Processor runs the seam carving itself:

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/seamkit/seamkit"
	)

	func main() {
		p := &seamkit.Processor{
			NewWidth:  500,
			NewHeight: 300,
		}

		in, _ := os.Open("input.jpg")
		out, _ := os.Create("output.jpg")
		defer out.Close()

		if err := p.Process(context.Background(), in, out, seamkit.DefaultCodec, seamkit.JPEG); err != nil {
			log.Fatalf("error rescaling image: %v", err)
		}
	}

The width is carved first, then the height. Enlargement is disabled unless
Processor.GrowthLimit is set.
*/
package seamkit
