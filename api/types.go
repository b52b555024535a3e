package api

// =============================================================================
// 响应信封
// =============================================================================

// Response 是所有端点共用的响应信封。
// 成功时 Error 为 null、Data 为结果；失败时 Error 为错误码、Detail 为简短说明、Data 为 null。
// @Description 统一响应信封
type Response struct {
	// 错误码（成功时为 null）
	Error *string `json:"error" example:"invalid-file-type"`
	// 结果数据
	Data any `json:"data"`
	// 错误说明（仅失败时出现）
	Detail string `json:"detail,omitempty" example:"invalid file type"`
}

// ListResponse 是 data 为列表的响应信封。
// @Description 列表型响应信封
type ListResponse[T any] struct {
	// 错误码（成功时为 null）
	Error *string `json:"error"`
	// 结果列表，永远不为 null
	Data []T `json:"data"`
}

// NewResponse 创建成功响应
func NewResponse(data any) Response {
	return Response{Data: data}
}

// NewListResponse 创建列表响应，nil 切片序列化为 []
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items}
}

// NewErrorResponse 创建失败响应
func NewErrorResponse(code, detail string) Response {
	return Response{Error: &code, Detail: detail}
}

// Descriptor 是模态路由根路径返回的静态描述。
// @Description 模态描述
type Descriptor struct {
	// 模态名称（text、image、document、video、audio）
	App string `json:"app" example:"text"`
}

// =============================================================================
// 文本请求
// =============================================================================

// TextRequest 单段文本输入。
// Text 使用指针以区分缺失（null）与空字符串，二者都会被拒绝。
// @Description 文本输入
type TextRequest struct {
	Text *string `json:"text" example:"This is a positive review."`
}

// QuestionAnswerRequest 基于上下文的多问题问答请求。
// @Description 问答请求
type QuestionAnswerRequest struct {
	// 上下文
	Text *string `json:"text" example:"The capital of France is Paris."`
	// 问题列表，每个问题单独调用一次模型
	Questions []string `json:"questions" example:"What is the capital of France?"`
}

// LabelRequest 零样本分类请求。
// @Description 零样本分类请求
type LabelRequest struct {
	// 待分类文本
	Text *string `json:"text" example:"This is an example sentence."`
	// 候选标签
	Labels []string `json:"labels" example:"positive,negative"`
}

// Base64ImageRequest 以 JSON 提交的 base64 图片。
// @Description base64 图片输入
type Base64ImageRequest struct {
	B64Content *string `json:"b64content"`
}

// =============================================================================
// 任务结果记录
// =============================================================================

// Classification 分类结果（文本分类、情感分析、图片分类）。
// @Description 分类结果
type Classification struct {
	Label string  `json:"label" example:"POSITIVE"`
	Score float64 `json:"score" example:"0.9998"`
}

// Box 检测框像素坐标。
// @Description 检测框
type Box struct {
	XMin int `json:"xmin" example:"12"`
	YMin int `json:"ymin" example:"40"`
	XMax int `json:"xmax" example:"320"`
	YMax int `json:"ymax" example:"410"`
}

// Detection 目标检测结果。
// @Description 目标检测结果
type Detection struct {
	Score float64 `json:"score" example:"0.97"`
	Label string  `json:"label" example:"cat"`
	Box   Box     `json:"box"`
}

// Segment 分割结果，Image 为与输入同格式的 base64 掩码图。
// @Description 分割结果
type Segment struct {
	Label string `json:"label" example:"cat"`
	Image string `json:"image"`
}

// Summary 摘要结果。
// @Description 摘要结果
type Summary struct {
	SummaryText string `json:"summary_text" example:"A fox jumps over a dog."`
}

// Answer 抽取式问答答案及其在上下文中的位置。
// @Description 问答答案
type Answer struct {
	Score  float64 `json:"score" example:"0.95"`
	Start  int     `json:"start" example:"24"`
	End    int     `json:"end" example:"29"`
	Answer string  `json:"answer" example:"Paris"`
}

// QuestionAnswer 问题与答案配对。
// @Description 问答结果
type QuestionAnswer struct {
	Question string `json:"question" example:"What is the capital of France?"`
	Answer   Answer `json:"answer"`
}

// LabelOutput 零样本分类结果，Labels 与 Scores 一一对应并按分数降序。
// @Description 零样本分类结果
type LabelOutput struct {
	Sequence string    `json:"sequence" example:"This is an example sentence."`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// MaskFill 掩码填充候选。
// @Description 掩码填充结果
type MaskFill struct {
	Score    float64 `json:"score" example:"0.179"`
	Token    int     `json:"token" example:"2505"`
	TokenStr string  `json:"token_str" example:"anything"`
	Sequence string  `json:"sequence" example:"please buy anything from the store."`
}

// SimilarityScore 句子与参考句的相似度。
// @Description 相似度结果
type SimilarityScore struct {
	Sentence string  `json:"sentence" example:"A fast fox jumps above the sleeping canine."`
	Score    float64 `json:"score" example:"0.78"`
}

// DocumentAnswer 文档问答结果。
// @Description 文档问答结果
type DocumentAnswer struct {
	Question string  `json:"question" example:"What is the invoice number?"`
	Answer   string  `json:"answer" example:"INV-0042"`
	Score    float64 `json:"score" example:"0.85"`
	Start    int     `json:"start" example:"10"`
	End      int     `json:"end" example:"12"`
}
