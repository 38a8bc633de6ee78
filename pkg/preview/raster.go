package preview

import (
	"image"
	"image/color"
	"math"
)

// screenVertex is a projected vertex: pixel position plus view depth
type screenVertex struct {
	x, y, z float64
}

// fillTriangle fills a triangle with depth testing against zbuffer
func fillTriangle(img *image.RGBA, zbuffer []float64, a, b, c screenVertex, col color.RGBA) {
	// Sort vertices by Y coordinate (top to bottom)
	if a.y > b.y {
		a, b = b, a
	}
	if b.y > c.y {
		b, c = c, b
	}
	if a.y > b.y {
		a, b = b, a
	}

	bounds := img.Bounds()
	width := bounds.Dx()

	yStart := int(math.Max(0, math.Ceil(a.y)))
	yEnd := int(math.Min(float64(bounds.Max.Y-1), c.y))

	for y := yStart; y <= yEnd; y++ {
		fy := float64(y)

		// The long edge a-c spans every scanline, the short one depends on the half
		xl, zl := edgeAt(a, c, fy)
		var xr, zr float64
		if fy < b.y {
			xr, zr = edgeAt(a, b, fy)
		} else {
			xr, zr = edgeAt(b, c, fy)
		}
		if xl > xr {
			xl, xr = xr, xl
			zl, zr = zr, zl
		}

		xStart := int(math.Max(0, math.Ceil(xl)))
		xEnd := int(math.Min(float64(bounds.Max.X-1), xr))
		for x := xStart; x <= xEnd; x++ {
			t := 0.0
			if xr != xl {
				t = (float64(x) - xl) / (xr - xl)
			}
			z := zl + t*(zr-zl)

			// Closer (smaller z) wins
			idx := y*width + x
			if z < zbuffer[idx] {
				zbuffer[idx] = z
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// edgeAt interpolates x and depth of edge p-q at scanline y
func edgeAt(p, q screenVertex, y float64) (float64, float64) {
	if q.y == p.y {
		return p.x, p.z
	}
	t := (y - p.y) / (q.y - p.y)
	return p.x + t*(q.x-p.x), p.z + t*(q.z-p.z)
}

// drawLine draws a line on an image using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	bounds := img.Bounds()

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		if x1 >= 0 && x1 < bounds.Max.X && y1 >= 0 && y1 < bounds.Max.Y {
			img.SetRGBA(x1, y1, col)
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawThickLine draws a square-brushed line of the given width in pixels
func drawThickLine(img *image.RGBA, x1, y1, x2, y2 float64, width int, col color.RGBA) {
	if width < 1 {
		width = 1
	}
	half := width / 2
	for oy := -half; oy < width-half; oy++ {
		for ox := -half; ox < width-half; ox++ {
			drawLine(img,
				int(math.Round(x1))+ox, int(math.Round(y1))+oy,
				int(math.Round(x2))+ox, int(math.Round(y2))+oy,
				col)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// drawPoint paints a size by size square centered on v with depth testing
func drawPoint(img *image.RGBA, zbuffer []float64, v screenVertex, size int, col color.RGBA) {
	bounds := img.Bounds()
	width := bounds.Dx()

	x0 := int(math.Round(v.x)) - size/2
	y0 := int(math.Round(v.y)) - size/2
	for y := max(y0, bounds.Min.Y); y < min(y0+size, bounds.Max.Y); y++ {
		for x := max(x0, bounds.Min.X); x < min(x0+size, bounds.Max.X); x++ {
			idx := y*width + x
			if v.z < zbuffer[idx] {
				zbuffer[idx] = v.z
				img.SetRGBA(x, y, col)
			}
		}
	}
}
