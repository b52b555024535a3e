package handlers

import "go.uber.org/zap"

// MediaHandler 仅提供描述的模态（video、audio）
type MediaHandler struct {
	*router
}

// NewVideoHandler 挂载在 /video 下
func NewVideoHandler(logger *zap.Logger) *MediaHandler {
	return &MediaHandler{router: newRouter("video", logger.With(zap.String("handler", "video")))}
}

// NewAudioHandler 挂载在 /audio 下
func NewAudioHandler(logger *zap.Logger) *MediaHandler {
	return &MediaHandler{router: newRouter("audio", logger.With(zap.String("handler", "audio")))}
}
