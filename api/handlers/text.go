package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/internal/upload"
	"github.com/BaSui01/lokingai/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📝 文本模态 Handler
// =============================================================================

// TextHandler 挂载在 /text 下
type TextHandler struct {
	*router
	processor      *inference.TextProcessor
	maxConcurrency int
}

// NewTextHandler 创建文本路由
func NewTextHandler(processor *inference.TextProcessor, maxConcurrency int, logger *zap.Logger) *TextHandler {
	h := &TextHandler{
		router:         newRouter("text", logger.With(zap.String("handler", "text"))),
		processor:      processor,
		maxConcurrency: maxConcurrency,
	}

	h.handle(http.MethodPost, "/classifier", h.HandleClassify)
	h.handle(http.MethodPost, "/sentiment-analyzer", h.HandleSentiment)
	h.handle(http.MethodPost, "/summarizer", h.HandleSummarize)
	h.handle(http.MethodPost, "/question-answering", h.HandleQuestionAnswering)
	h.handle(http.MethodPost, "/labelizer", h.HandleLabelize)
	h.handle(http.MethodPost, "/mask-filler", h.HandleFillMask)
	h.handle(http.MethodPost, "/similarities-detector", h.HandleSimilarity)
	return h
}

// HandleClassify 批量文本分类
// @Summary 文本分类
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body []api.TextRequest true "待分类文本"
// @Success 200 {object} api.ListResponse[api.Classification]
// @Failure 400 {object} api.Response
// @Router /text/classifier [post]
func (h *TextHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	h.classifyBatch(w, r, h.processor.Classify)
}

// HandleSentiment 批量情感分析
// @Summary 情感分析
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body []api.TextRequest true "待分析文本"
// @Success 200 {object} api.ListResponse[api.Classification]
// @Router /text/sentiment-analyzer [post]
func (h *TextHandler) HandleSentiment(w http.ResponseWriter, r *http.Request) {
	h.classifyBatch(w, r, h.processor.AnalyzeSentiment)
}

func (h *TextHandler) classifyBatch(w http.ResponseWriter, r *http.Request,
	classify func(ctx context.Context, texts []string) ([]api.Classification, error)) {
	var req []api.TextRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	texts := make([]string, len(req))
	for i := range req {
		if err := upload.RequireText(req[i].Text); err != nil {
			WriteErrorFrom(w, err, h.logger)
			return
		}
		texts[i] = *req[i].Text
	}

	out, err := classify(r.Context(), texts)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}

// HandleSummarize 文本摘要
// @Summary 文本摘要
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.TextRequest true "待摘要文本"
// @Success 200 {object} api.Response{data=api.Summary}
// @Router /text/summarizer [post]
func (h *TextHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	var req api.TextRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := upload.RequireText(req.Text); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	summary, err := h.processor.Summarize(r.Context(), *req.Text)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteSuccess(w, summary)
}

// HandleQuestionAnswering 基于上下文回答多个问题，每个问题单独调用模型
// @Summary 抽取式问答
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.QuestionAnswerRequest true "上下文与问题"
// @Success 200 {object} api.ListResponse[api.QuestionAnswer]
// @Router /text/question-answering [post]
func (h *TextHandler) HandleQuestionAnswering(w http.ResponseWriter, r *http.Request) {
	var req api.QuestionAnswerRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := upload.RequireText(req.Text); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	for i := range req.Questions {
		if err := upload.RequireText(&req.Questions[i]); err != nil {
			WriteErrorFrom(w, err, h.logger)
			return
		}
	}

	passage := *req.Text
	out, err := fanOut(r.Context(), len(req.Questions), h.maxConcurrency,
		func(ctx context.Context, i int) (api.QuestionAnswer, error) {
			answer, err := h.processor.AnswerQuestion(ctx, passage, req.Questions[i])
			if err != nil {
				return api.QuestionAnswer{}, err
			}
			return api.QuestionAnswer{Question: req.Questions[i], Answer: answer}, nil
		})
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}

// HandleLabelize 零样本分类，multi_label 查询参数默认 true
// @Summary 零样本分类
// @Tags 文本
// @Accept json
// @Produce json
// @Param multi_label query bool false "标签是否相互独立" default(true)
// @Param request body api.LabelRequest true "文本与候选标签"
// @Success 200 {object} api.Response{data=api.LabelOutput}
// @Router /text/labelizer [post]
func (h *TextHandler) HandleLabelize(w http.ResponseWriter, r *http.Request) {
	multiLabel := true
	if raw := r.URL.Query().Get("multi_label"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, types.NewInvalidRequestError("multi_label must be a boolean").WithCause(err), h.logger)
			return
		}
		multiLabel = v
	}

	var req api.LabelRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := upload.RequireText(req.Text); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	if len(req.Labels) == 0 {
		WriteError(w, types.NewInvalidRequestError("labels can't be empty"), h.logger)
		return
	}

	out, err := h.processor.Labelize(r.Context(), *req.Text, req.Labels, multiLabel)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteSuccess(w, out)
}

// HandleFillMask 掩码填充
// @Summary 掩码填充
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.TextRequest true "含 [MASK] 的文本"
// @Success 200 {object} api.ListResponse[api.MaskFill]
// @Router /text/mask-filler [post]
func (h *TextHandler) HandleFillMask(w http.ResponseWriter, r *http.Request) {
	var req api.TextRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := upload.RequireText(req.Text); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	out, err := h.processor.FillMask(r.Context(), *req.Text)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}

// HandleSimilarity 第一句为参考句，其余每句与之比较一次；参考句不出现在结果中
// @Summary 句子相似度
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body []string true "参考句在前"
// @Success 200 {object} api.ListResponse[api.SimilarityScore]
// @Router /text/similarities-detector [post]
func (h *TextHandler) HandleSimilarity(w http.ResponseWriter, r *http.Request) {
	var sentences []string
	if err := DecodeJSONBody(w, r, &sentences, h.logger); err != nil {
		return
	}
	if len(sentences) == 0 {
		WriteError(w, types.NewInvalidRequestError("at least one sentence is required"), h.logger)
		return
	}
	for i := range sentences {
		if err := upload.RequireText(&sentences[i]); err != nil {
			WriteErrorFrom(w, err, h.logger)
			return
		}
	}

	reference, others := sentences[0], sentences[1:]
	out, err := fanOut(r.Context(), len(others), h.maxConcurrency,
		func(ctx context.Context, i int) (api.SimilarityScore, error) {
			score, err := h.processor.Similarity(ctx, reference, others[i])
			if err != nil {
				return api.SimilarityScore{}, err
			}
			return api.SimilarityScore{Sentence: others[i], Score: score}, nil
		})
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	WriteList(w, out)
}
