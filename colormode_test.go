package ppa

import "testing"

func TestColorModeInfo(t *testing.T) {
	tests := []struct {
		mode  ColorMode
		bits  int
		pbyte uint8
		rgb   bool
		yuv   bool
		name  string
	}{
		{ColorModeARGB8888, 32, 5, true, false, "ARGB8888"},
		{ColorModeRGB888, 24, 4, true, false, "RGB888"},
		{ColorModeRGB565, 16, 3, true, false, "RGB565"},
		{ColorModeYUV420, 12, 2, false, true, "YUV420"},
		{ColorModeYUV444, 24, 4, false, true, "YUV444"},
		{ColorModeYUV422, 16, 3, false, true, "YUV422"},
		{ColorModeL8, 8, 1, false, false, "L8"},
		{ColorModeL4, 4, 0, false, false, "L4"},
		{ColorModeA8, 8, 1, false, false, "A8"},
		{ColorModeA4, 4, 0, false, false, "A4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Bits(); got != tt.bits {
				t.Errorf("Bits() = %d, want %d", got, tt.bits)
			}
			if got := tt.mode.pbyte(); got != tt.pbyte {
				t.Errorf("pbyte() = %d, want %d", got, tt.pbyte)
			}
			if got := tt.mode.IsRGB(); got != tt.rgb {
				t.Errorf("IsRGB() = %v, want %v", got, tt.rgb)
			}
			if got := tt.mode.IsYUV(); got != tt.yuv {
				t.Errorf("IsYUV() = %v, want %v", got, tt.yuv)
			}
			if got := tt.mode.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestColorModeInvalid(t *testing.T) {
	m := ColorMode(200)
	if m.IsValid() {
		t.Error("ColorMode(200).IsValid() = true")
	}
	if m.Bits() != 0 || m.IsRGB() || m.String() != "Unknown" {
		t.Errorf("invalid mode leaked metadata: bits=%d rgb=%v name=%q", m.Bits(), m.IsRGB(), m.String())
	}
	if srmInModes.has(m) {
		t.Error("mode set accepted an invalid mode")
	}
}

func TestColorModePixelBytes(t *testing.T) {
	tests := []struct {
		mode ColorMode
		w, h int
		want int
	}{
		{ColorModeARGB8888, 4, 4, 64},
		{ColorModeYUV420, 4, 2, 12},
		{ColorModeA4, 3, 1, 2},
	}
	for _, tt := range tests {
		if got := tt.mode.PixelBytes(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.PixelBytes(%d, %d) = %d, want %d", tt.mode, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestEnginePortModes(t *testing.T) {
	if !srmInModes.has(ColorModeYUV422) || srmOutModes.has(ColorModeYUV422) {
		t.Error("YUV422 must be SRM input only")
	}
	if blendBgModes.has(ColorModeA8) || !blendFgModes.has(ColorModeA8) {
		t.Error("A8 must be blend foreground only")
	}
	if fillOutModes.has(ColorModeL8) {
		t.Error("fill must not output L8")
	}
}
