package models

// FramePayload 出站帧消息（客户端 → 分析服务）
// 字段名与服务端 websocket 协议保持一致
type FramePayload struct {
	ImageBase64 string `json:"image_base64"`
	Sport       string `json:"sport"`
	FrameWidth  int    `json:"frame_width"`
	FrameHeight int    `json:"frame_height"`
}

// SportPayload 运动类型切换控制消息（不携带图像）
type SportPayload struct {
	Sport string `json:"sport"`
}
