// Package blend implements the alpha compositing used by the software model
// of the blend engine.
//
// The hardware consumes straight (non-premultiplied) ARGB and composes the
// foreground over the background with the Porter-Duff source-over operator.
// Compositing is done on premultiplied values and converted back, so callers
// work with Pixel in straight form and use Over.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Pixel is an 8-bit RGBA color.
type Pixel struct {
	R, G, B, A byte
}

// Premultiply converts a straight-alpha pixel to premultiplied form.
func Premultiply(p Pixel) Pixel {
	return Pixel{mulDiv255(p.R, p.A), mulDiv255(p.G, p.A), mulDiv255(p.B, p.A), p.A}
}

// Unpremultiply converts a premultiplied pixel back to straight alpha.
func Unpremultiply(p Pixel) Pixel {
	if p.A == 0 {
		return Pixel{}
	}
	if p.A == 255 {
		return p
	}
	return Pixel{divClamp(p.R, p.A), divClamp(p.G, p.A), divClamp(p.B, p.A), p.A}
}

// Over composites src onto dst. Both pixels and the result are in straight
// alpha.
func Over(src, dst Pixel) Pixel {
	return Unpremultiply(OverPremul(Premultiply(src), Premultiply(dst)))
}

// OverPremul computes S + D*(1-Sa) on premultiplied pixels.
func OverPremul(s, d Pixel) Pixel {
	inv := 255 - s.A
	return Pixel{
		addClamp(s.R, mulDiv255(d.R, inv)),
		addClamp(s.G, mulDiv255(d.G, inv)),
		addClamp(s.B, mulDiv255(d.B, inv)),
		addClamp(s.A, mulDiv255(d.A, inv)),
	}
}
