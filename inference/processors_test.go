package inference_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/internal/imaging"
	"github.com/BaSui01/lokingai/testutil"
	"github.com/BaSui01/lokingai/testutil/mocks"
	"github.com/BaSui01/lokingai/types"
)

func allModels() inference.ModelSet {
	models := inference.ModelSet{}
	for _, task := range inference.AllTasks() {
		models[task] = "model/" + string(task)
	}
	return models
}

func newRegistry(backend *mocks.FakeBackend) *inference.Registry {
	return inference.NewRegistry(backend, allModels(), zap.NewNop())
}

// =============================================================================
// 文本任务
// =============================================================================

func TestTextProcessor_ClassifyShapes(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "one result per input",
			output: `[{"label":"POSITIVE","score":0.99},{"label":"NEGATIVE","score":0.8}]`,
			want:   []string{"POSITIVE", "NEGATIVE"},
		},
		{
			name:   "ranked list per input",
			output: `[[{"label":"joy","score":0.1},{"label":"love","score":0.9}],[{"label":"anger","score":0.7}]]`,
			want:   []string{"love", "anger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := mocks.NewFakeBackend().WithOutput(inference.TaskSentiment, tt.output)
			p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

			got, err := p.AnalyzeSentiment(context.Background(), []string{"a", "b"})
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i, label := range tt.want {
				assert.Equal(t, label, got[i].Label)
			}
		})
	}
}

func TestTextProcessor_ClassifyCountMismatch(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskTextClassification, `[{"label":"POSITIVE","score":0.99}]`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	_, err := p.Classify(context.Background(), []string{"a", "b"})
	assert.True(t, types.IsErrorCode(err, types.ErrUnexpectedOutput))
}

func TestTextProcessor_ClassifyEmptyBatch(t *testing.T) {
	backend := mocks.NewFakeBackend()
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	got, err := p.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, backend.Calls())
}

func TestTextProcessor_Summarize(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskSummarization, `[{"summary_text":"A fox jumps."},{"summary_text":"ignored"}]`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	got, err := p.Summarize(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	assert.Equal(t, "A fox jumps.", got.SummaryText)

	calls := backend.CallsFor(inference.TaskSummarization)
	require.Len(t, calls, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", calls[0].Input.Inputs)
}

func TestTextProcessor_SummarizeEmptyList(t *testing.T) {
	backend := mocks.NewFakeBackend().WithOutput(inference.TaskSummarization, `[]`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	_, err := p.Summarize(context.Background(), "text")
	assert.True(t, types.IsErrorCode(err, types.ErrUnexpectedOutput))
}

func TestTextProcessor_AnswerQuestion(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskQuestionAnswering, `{"score":0.96,"start":24,"end":29,"answer":"Paris"}`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	got, err := p.AnswerQuestion(context.Background(), "The capital of France is Paris.", "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.Answer)
	assert.Equal(t, 24, got.Start)

	calls := backend.CallsFor(inference.TaskQuestionAnswering)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]string{
		"question": "What is the capital of France?",
		"context":  "The capital of France is Paris.",
	}, calls[0].Input.Inputs)
}

func TestTextProcessor_Labelize(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskZeroShot, `{"sequence":"s","labels":["travel","cooking"],"scores":[0.9,0.1]}`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	got, err := p.Labelize(context.Background(), "s", []string{"cooking", "travel"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "cooking"}, got.Labels)

	calls := backend.CallsFor(inference.TaskZeroShot)
	require.Len(t, calls, 1)
	assert.Equal(t, false, calls[0].Input.Parameters["multi_label"])
	assert.Equal(t, []string{"cooking", "travel"}, calls[0].Input.Parameters["candidate_labels"])
}

func TestTextProcessor_FillMask(t *testing.T) {
	single := `[{"score":0.18,"token":2505,"token_str":"anything","sequence":"please buy anything"}]`
	grouped := `[[{"score":0.5,"token":1,"token_str":"a","sequence":"a"}],[{"score":0.4,"token":2,"token_str":"b","sequence":"b"}]]`

	for name, output := range map[string]string{"single": single, "grouped": grouped} {
		t.Run(name, func(t *testing.T) {
			backend := mocks.NewFakeBackend().WithOutput(inference.TaskFillMask, output)
			p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

			got, err := p.FillMask(context.Background(), "please buy [MASK]")
			require.NoError(t, err)
			require.Len(t, got, 1)
		})
	}
}

func TestTextProcessor_Similarity(t *testing.T) {
	backend := mocks.NewFakeBackend().WithOutput(inference.TaskSentenceSimilarity, `[0.78]`)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	score, err := p.Similarity(context.Background(), "ref", "other")
	require.NoError(t, err)
	assert.InDelta(t, 0.78, score, 1e-9)

	backend.WithOutput(inference.TaskSentenceSimilarity, `[0.1,0.2]`)
	_, err = p.Similarity(context.Background(), "ref", "other")
	assert.True(t, types.IsErrorCode(err, types.ErrUnexpectedOutput))
}

func TestTextProcessor_UpstreamErrorPassesThrough(t *testing.T) {
	upstream := types.NewError(types.ErrUpstreamTimeout, "timeout").WithHTTPStatus(504)
	backend := mocks.NewFakeBackend().WithError(inference.TaskSummarization, upstream)
	p := inference.NewTextProcessor(newRegistry(backend), zap.NewNop())

	_, err := p.Summarize(context.Background(), "text")
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout))
}

// =============================================================================
// 图像与文档任务
// =============================================================================

func TestImageProcessor_ClassifyAndDetect(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskImageClassification, `[{"label":"tabby cat","score":0.9}]`).
		WithOutput(inference.TaskObjectDetection, `[{"score":0.97,"label":"cat","box":{"xmin":1,"ymin":2,"xmax":3,"ymax":4}}]`)
	p := inference.NewImageProcessor(newRegistry(backend), zap.NewNop())
	data := testutil.TestImage(t, imaging.FormatPNG)

	labels, err := p.Classify(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "tabby cat", labels[0].Label)

	detections, err := p.DetectObjects(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 4, detections[0].Box.YMax)

	calls := backend.CallsFor(inference.TaskImageClassification)
	require.Len(t, calls, 1)
	assert.Equal(t, data, calls[0].Input.Raw)
	assert.Equal(t, "image/png", calls[0].Input.ContentType)
}

func TestImageProcessor_SegmentDecodesMasks(t *testing.T) {
	mask := base64.StdEncoding.EncodeToString(testutil.TestImage(t, imaging.FormatPNG))
	output, err := json.Marshal([]map[string]any{
		{"label": "cat", "score": 0.99, "mask": mask},
		{"label": "background", "score": nil, "mask": mask},
	})
	require.NoError(t, err)

	backend := mocks.NewFakeBackend().WithOutput(inference.TaskImageSegmentation, string(output))
	p := inference.NewImageProcessor(newRegistry(backend), zap.NewNop())

	masks, err := p.Segment(context.Background(), testutil.TestImage(t, imaging.FormatJPEG), "image/jpeg")
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, "cat", masks[0].Label)
	assert.InDelta(t, 0.99, masks[0].Score, 1e-9)
	assert.Equal(t, 4, masks[1].Image.Bounds().Dx())
}

func TestImageProcessor_SegmentBadMask(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskImageSegmentation, `[{"label":"cat","score":0.9,"mask":"bm90IGFuIGltYWdl"}]`)
	p := inference.NewImageProcessor(newRegistry(backend), zap.NewNop())

	_, err := p.Segment(context.Background(), []byte("x"), "image/png")
	assert.True(t, types.IsErrorCode(err, types.ErrUnexpectedOutput))
}

func TestDocumentProcessor_AnswerQuestion(t *testing.T) {
	backend := mocks.NewFakeBackend().
		WithOutput(inference.TaskDocumentQA, `[{"score":0.85,"answer":"INV-0042","start":10,"end":12}]`)
	p := inference.NewDocumentProcessor(newRegistry(backend), zap.NewNop())
	page := testutil.TestImage(t, imaging.FormatPNG)

	got, err := p.AnswerQuestion(context.Background(), page, "What is the invoice number?")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "What is the invoice number?", got.Question)
	assert.Equal(t, "INV-0042", got.Answer)

	calls := backend.CallsFor(inference.TaskDocumentQA)
	require.Len(t, calls, 1)
	inputs := calls[0].Input.Inputs.(map[string]string)
	assert.Equal(t, base64.StdEncoding.EncodeToString(page), inputs["image"])
}

func TestDocumentProcessor_NoAnswer(t *testing.T) {
	backend := mocks.NewFakeBackend().WithOutput(inference.TaskDocumentQA, `[]`)
	p := inference.NewDocumentProcessor(newRegistry(backend), zap.NewNop())

	got, err := p.AnswerQuestion(context.Background(), []byte("page"), "q")
	require.NoError(t, err)
	assert.Nil(t, got)
}
