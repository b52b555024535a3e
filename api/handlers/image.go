package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/internal/imaging"
	"github.com/BaSui01/lokingai/internal/upload"
	"github.com/BaSui01/lokingai/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🖼️ 图像模态 Handler
// =============================================================================

// PayloadField 上传文件所在的 multipart 字段名
const PayloadField = "payload"

// multipart 边界与表单头的余量
const multipartOverhead int64 = 64 << 10

// ImageHandler 挂载在 /image 下
type ImageHandler struct {
	*router
	processor *inference.ImageProcessor
	validator *upload.Validator
	observer  UploadObserver
}

// NewImageHandler 创建图像路由；observer 可为 nil
func NewImageHandler(processor *inference.ImageProcessor, validator *upload.Validator, observer UploadObserver, logger *zap.Logger) *ImageHandler {
	h := &ImageHandler{
		router:    newRouter("image", logger.With(zap.String("handler", "image"))),
		processor: processor,
		validator: validator,
		observer:  observer,
	}

	h.handle(http.MethodPost, "/classify", h.HandleClassify)
	h.handle(http.MethodPost, "/detect-object", h.HandleDetectObjects)
	h.handle(http.MethodPost, "/segment", h.HandleSegment)
	return h
}

// HandleClassify 图片分类
// @Summary 图片分类
// @Tags 图像
// @Accept multipart/form-data,json
// @Produce json
// @Param payload formData file false "图片文件"
// @Success 200 {object} api.ListResponse[api.Classification]
// @Failure 400 {object} api.Response
// @Router /image/classify [post]
func (h *ImageHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	img, ok := h.readImage(w, r)
	if !ok {
		return
	}
	out, err := h.processor.Classify(r.Context(), img.data, img.contentType())
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}

// HandleDetectObjects 目标检测
// @Summary 目标检测
// @Tags 图像
// @Accept multipart/form-data,json
// @Produce json
// @Param payload formData file false "图片文件"
// @Success 200 {object} api.ListResponse[api.Detection]
// @Router /image/detect-object [post]
func (h *ImageHandler) HandleDetectObjects(w http.ResponseWriter, r *http.Request) {
	img, ok := h.readImage(w, r)
	if !ok {
		return
	}
	out, err := h.processor.DetectObjects(r.Context(), img.data, img.contentType())
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}

// HandleSegment 图像分割，掩码按输入图片格式重新编码为 base64
// @Summary 图像分割
// @Tags 图像
// @Accept multipart/form-data,json
// @Produce json
// @Param payload formData file false "图片文件"
// @Success 200 {object} api.ListResponse[api.Segment]
// @Router /image/segment [post]
func (h *ImageHandler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	img, ok := h.readImage(w, r)
	if !ok {
		return
	}
	segments, err := h.segment(r.Context(), img)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, segments)
}

func (h *ImageHandler) segment(ctx context.Context, img *uploadedImage) ([]api.Segment, error) {
	masks, err := h.processor.Segment(ctx, img.data, img.contentType())
	if err != nil {
		return nil, err
	}

	segments := make([]api.Segment, 0, len(masks))
	for _, m := range masks {
		encoded, err := imaging.EncodeBase64(m.Image, img.format)
		if err != nil {
			return nil, types.NewError(types.ErrInternalError, "failed to encode mask").
				WithCause(err).
				WithHTTPStatus(http.StatusInternalServerError)
		}
		segments = append(segments, api.Segment{Label: m.Label, Image: encoded})
	}
	return segments, nil
}

// uploadedImage 已校验并确认可解码的图片
type uploadedImage struct {
	data   []byte
	format imaging.Format
}

func (i *uploadedImage) contentType() string {
	return i.format.ContentType()
}

// readImage 读取 multipart payload 或 {"b64content": ...}，先校验类型与大小再解码。
// 失败时已写入错误响应。
func (h *ImageHandler) readImage(w http.ResponseWriter, r *http.Request) (*uploadedImage, bool) {
	file, err := h.readFile(w, r)
	if err != nil {
		h.reject(err)
		WriteErrorFrom(w, err, h.logger)
		return nil, false
	}

	decoded, err := imaging.Decode(file.Data)
	if err != nil {
		err = types.NewInvalidImageError(err)
		h.reject(err)
		WriteErrorFrom(w, err, h.logger)
		return nil, false
	}

	return &uploadedImage{data: file.Data, format: decoded.Format}, true
}

// readFile 返回已通过类型与大小校验的上传
func (h *ImageHandler) readFile(w http.ResponseWriter, r *http.Request) (*upload.File, error) {
	if !IsJSONRequest(r) {
		form, err := upload.ReadMultipart(w, r, PayloadField, h.validator, h.validator.MaxBytes()+multipartOverhead)
		if err != nil {
			return nil, err
		}
		return form.File, nil
	}

	var req api.Base64ImageRequest
	// base64 膨胀约 4/3；类型只能在解码后嗅探，超限的请求体按 file-too-large 处理
	limit := h.validator.MaxBytes()*4/3 + multipartOverhead
	if err := decodeJSON(w, r, &req, limit); err != nil {
		if err.HTTPStatus == http.StatusRequestEntityTooLarge {
			return nil, types.NewFileTooLargeError().WithCause(err)
		}
		return nil, err
	}
	if req.B64Content == nil {
		return nil, types.NewNoFileError()
	}
	file, err := upload.FromBase64(*req.B64Content)
	if err != nil {
		return nil, err
	}
	if err := h.validator.ValidateFile(file); err != nil {
		return nil, err
	}
	return file, nil
}

func (h *ImageHandler) reject(err error) {
	if h.observer != nil {
		h.observer.RecordUploadRejected("image", string(types.GetErrorCode(err)))
	}
}
