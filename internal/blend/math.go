package blend

// mulDiv255 multiplies two bytes and divides by 255 with rounding.
// Formula: (a * b + 127) / 255
func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

// addClamp adds two bytes and clamps to 255.
func addClamp(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}

// divClamp computes a * 255 / b, clamped to 255. b must be non-zero.
func divClamp(a, b byte) byte {
	v := (uint16(a)*255 + uint16(b)/2) / uint16(b)
	if v > 255 {
		return 255
	}
	return byte(v)
}
