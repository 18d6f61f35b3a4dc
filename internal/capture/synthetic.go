package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"
)

// SyntheticSource 合成帧源：生成随帧号移动的渐变测试图
// 用于没有物理采集设备的联调和演示场景
type SyntheticSource struct {
	width  int
	height int
	frame  atomic.Uint64
}

// NewSyntheticSource 创建合成帧源
func NewSyntheticSource(width, height int) *SyntheticSource {
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = 240
	}
	return &SyntheticSource{width: width, height: height}
}

// Frame 渲染并编码下一帧
func (s *SyntheticSource) Frame() ([]byte, int, int, bool) {
	n := s.frame.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := uint8(n % 256)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x) + shift,
				G: uint8(y),
				B: shift,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
		return nil, 0, 0, false
	}
	return buf.Bytes(), s.width, s.height, true
}
