package inference

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/api"
)

// DocumentProcessor answers questions about a single page image.
type DocumentProcessor struct {
	runner Runner
	logger *zap.Logger
}

// NewDocumentProcessor creates a DocumentProcessor.
func NewDocumentProcessor(runner Runner, logger *zap.Logger) *DocumentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentProcessor{runner: runner, logger: logger.With(zap.String("component", "document_processor"))}
}

// AnswerQuestion returns the best answer for question on page, or nil when
// the model found none.
func (p *DocumentProcessor) AnswerQuestion(ctx context.Context, page []byte, question string) (*api.DocumentAnswer, error) {
	raw, err := p.runner.Run(ctx, TaskDocumentQA, Input{
		Inputs: map[string]string{
			"image":    base64.StdEncoding.EncodeToString(page),
			"question": question,
		},
	})
	if err != nil {
		return nil, err
	}

	var answers []api.DocumentAnswer
	if isJSONArray(raw) {
		if err := decodeOutput(p.logger, TaskDocumentQA, raw, &answers); err != nil {
			return nil, err
		}
	} else {
		var one api.DocumentAnswer
		if err := decodeOutput(p.logger, TaskDocumentQA, raw, &one); err != nil {
			return nil, err
		}
		answers = append(answers, one)
	}
	if len(answers) == 0 {
		return nil, nil
	}
	answer := answers[0]
	answer.Question = question
	return &answer, nil
}
