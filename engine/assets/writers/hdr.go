// Package writers encodes rendered images to disk formats.
package writers

import (
	"bufio"
	"fmt"
	"math"
	"os"
)

// WriteHDR encodes an RGBA32F pixel buffer as a Radiance HDR file. Pixels
// are laid out row-major, four float32 components per pixel; the alpha
// channel is dropped. Scanlines are written unencoded, which every Radiance
// reader accepts regardless of image width.
func WriteHDR(path string, width, height uint32, pixels []float32) error {
	if uint32(len(pixels)) != width*height*4 {
		return fmt.Errorf("pixel buffer holds %d floats, want %d for %dx%d RGBA",
			len(pixels), width*height*4, width, height)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y %d +X %d\n", height, width); err != nil {
		return err
	}

	quad := make([]byte, 4)
	for i := uint32(0); i < width*height; i++ {
		encodeRGBE(quad, pixels[i*4], pixels[i*4+1], pixels[i*4+2])
		if _, err := w.Write(quad); err != nil {
			return err
		}
	}
	return w.Flush()
}

// encodeRGBE packs one linear RGB triple into the shared-exponent RGBE
// format: 8-bit mantissas scaled by the exponent of the largest component.
func encodeRGBE(dst []byte, r, g, b float32) {
	maxComp := r
	if g > maxComp {
		maxComp = g
	}
	if b > maxComp {
		maxComp = b
	}
	if maxComp < 1e-32 {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
		return
	}
	frac, exp := math.Frexp(float64(maxComp))
	scale := float32(frac) * 256.0 / maxComp
	dst[0] = byte(r * scale)
	dst[1] = byte(g * scale)
	dst[2] = byte(b * scale)
	dst[3] = byte(exp + 128)
}
