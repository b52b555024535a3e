package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/internal/imaging"
	"github.com/BaSui01/lokingai/internal/upload"
	"github.com/BaSui01/lokingai/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📄 文档模态 Handler
// =============================================================================

// QuestionsField 逗号拼接的问题列表所在表单字段
const QuestionsField = "questions"

var errRasterizerMissing = errors.New("no pdf rasterizer configured")

// DocumentHandler 挂载在 /document 下
type DocumentHandler struct {
	*router
	processor      *inference.DocumentProcessor
	validator      *upload.Validator
	rasterizer     imaging.Rasterizer
	observer       UploadObserver
	maxConcurrency int
}

// DocumentOptions 文档路由依赖
type DocumentOptions struct {
	Validator      *upload.Validator
	Rasterizer     imaging.Rasterizer
	Observer       UploadObserver
	MaxConcurrency int
}

// NewDocumentHandler 创建文档路由
func NewDocumentHandler(processor *inference.DocumentProcessor, opts DocumentOptions, logger *zap.Logger) *DocumentHandler {
	h := &DocumentHandler{
		router:         newRouter("document", logger.With(zap.String("handler", "document"))),
		processor:      processor,
		validator:      opts.Validator,
		rasterizer:     opts.Rasterizer,
		observer:       opts.Observer,
		maxConcurrency: opts.MaxConcurrency,
	}

	h.handle(http.MethodPost, "/answer-questions", h.HandleAnswerQuestions)
	return h
}

// HandleAnswerQuestions 对上传文档的首页逐个回答问题。
// PDF 先栅格化首页；模型没有给出答案的问题不出现在结果中。
// @Summary 文档问答
// @Tags 文档
// @Accept multipart/form-data
// @Produce json
// @Param payload formData file true "图片或 PDF"
// @Param questions formData string true "逗号分隔的问题"
// @Success 200 {object} api.ListResponse[api.DocumentAnswer]
// @Failure 400 {object} api.Response
// @Failure 500 {object} api.Response
// @Router /document/answer-questions [post]
func (h *DocumentHandler) HandleAnswerQuestions(w http.ResponseWriter, r *http.Request) {
	form, err := upload.ReadMultipart(w, r, PayloadField, h.validator, h.validator.MaxBytes()+multipartOverhead)
	if err != nil {
		h.reject(err)
		WriteErrorFrom(w, err, h.logger)
		return
	}

	questions := splitQuestions(form.Value(QuestionsField))
	if len(questions) == 0 {
		WriteError(w, types.NewInvalidRequestError("questions can't be empty"), h.logger)
		return
	}

	page, err := h.firstPage(r.Context(), form.File)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	answers, err := fanOut(r.Context(), len(questions), h.maxConcurrency,
		func(ctx context.Context, i int) (*api.DocumentAnswer, error) {
			return h.processor.AnswerQuestion(ctx, page, questions[i])
		})
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	out := make([]api.DocumentAnswer, 0, len(answers))
	for _, a := range answers {
		if a != nil {
			out = append(out, *a)
		}
	}
	WriteList(w, out)
}

// firstPage 返回交给模型的页面图像：PDF 栅格化首页，图片原样返回。
// 任何解码失败都以固定提示的 500 返回。
func (h *DocumentHandler) firstPage(ctx context.Context, file *upload.File) ([]byte, error) {
	data := file.Data
	if imaging.IsPDF(data) {
		if h.rasterizer == nil {
			return nil, types.NewDocumentDecodeError(errRasterizerMissing)
		}
		page, err := h.rasterizer.FirstPage(ctx, data)
		if err != nil {
			return nil, types.NewDocumentDecodeError(err)
		}
		return page, nil
	}

	if _, err := imaging.Decode(data); err != nil {
		return nil, types.NewDocumentDecodeError(err)
	}
	return data, nil
}

func (h *DocumentHandler) reject(err error) {
	if h.observer != nil {
		h.observer.RecordUploadRejected("document", string(types.GetErrorCode(err)))
	}
}
