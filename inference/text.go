package inference

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/api"
)

// TextProcessor runs the text tasks.
type TextProcessor struct {
	runner Runner
	logger *zap.Logger
}

// NewTextProcessor creates a TextProcessor.
func NewTextProcessor(runner Runner, logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{runner: runner, logger: logger.With(zap.String("component", "text_processor"))}
}

// Classify labels every text with the classification model, one result per input.
func (p *TextProcessor) Classify(ctx context.Context, texts []string) ([]api.Classification, error) {
	return p.classifyWith(ctx, TaskTextClassification, texts)
}

// AnalyzeSentiment labels every text with the emotion model, one result per input.
func (p *TextProcessor) AnalyzeSentiment(ctx context.Context, texts []string) ([]api.Classification, error) {
	return p.classifyWith(ctx, TaskSentiment, texts)
}

func (p *TextProcessor) classifyWith(ctx context.Context, task Task, texts []string) ([]api.Classification, error) {
	if len(texts) == 0 {
		return []api.Classification{}, nil
	}
	raw, err := p.runner.Run(ctx, task, Input{Inputs: texts})
	if err != nil {
		return nil, err
	}
	return bestPerInput(p.logger, task, raw, len(texts))
}

// bestPerInput accepts [{label,score}] with one entry per input, or
// [[{label,score},...]] with a ranked list per input.
func bestPerInput(logger *zap.Logger, task Task, raw json.RawMessage, n int) ([]api.Classification, error) {
	var nested [][]api.Classification
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) != n {
			return nil, unexpected(logger, task, raw, "result count does not match input count")
		}
		out := make([]api.Classification, 0, n)
		for _, ranked := range nested {
			if len(ranked) == 0 {
				return nil, unexpected(logger, task, raw, "empty ranking")
			}
			best := ranked[0]
			for _, c := range ranked[1:] {
				if c.Score > best.Score {
					best = c
				}
			}
			out = append(out, best)
		}
		return out, nil
	}

	var flat []api.Classification
	if err := decodeOutput(logger, task, raw, &flat); err != nil {
		return nil, err
	}
	if len(flat) != n {
		return nil, unexpected(logger, task, raw, "result count does not match input count")
	}
	return flat, nil
}

// Summarize returns the first summary produced for text.
func (p *TextProcessor) Summarize(ctx context.Context, text string) (api.Summary, error) {
	raw, err := p.runner.Run(ctx, TaskSummarization, Input{Inputs: text})
	if err != nil {
		return api.Summary{}, err
	}
	return decodeFirst[api.Summary](p.logger, TaskSummarization, raw)
}

// AnswerQuestion extracts the answer to question from passage.
func (p *TextProcessor) AnswerQuestion(ctx context.Context, passage, question string) (api.Answer, error) {
	raw, err := p.runner.Run(ctx, TaskQuestionAnswering, Input{
		Inputs: map[string]string{
			"question": question,
			"context":  passage,
		},
	})
	if err != nil {
		return api.Answer{}, err
	}
	return decodeFirst[api.Answer](p.logger, TaskQuestionAnswering, raw)
}

// Labelize scores text against the candidate labels.
func (p *TextProcessor) Labelize(ctx context.Context, text string, labels []string, multiLabel bool) (api.LabelOutput, error) {
	if labels == nil {
		labels = []string{}
	}
	raw, err := p.runner.Run(ctx, TaskZeroShot, Input{
		Inputs: text,
		Parameters: map[string]any{
			"candidate_labels": labels,
			"multi_label":      multiLabel,
		},
	})
	if err != nil {
		return api.LabelOutput{}, err
	}
	return decodeFirst[api.LabelOutput](p.logger, TaskZeroShot, raw)
}

// FillMask returns the ranked candidates for the mask token in text.
func (p *TextProcessor) FillMask(ctx context.Context, text string) ([]api.MaskFill, error) {
	raw, err := p.runner.Run(ctx, TaskFillMask, Input{Inputs: text})
	if err != nil {
		return nil, err
	}

	var fills []api.MaskFill
	if err := json.Unmarshal(raw, &fills); err == nil {
		return fills, nil
	}
	// 多个 mask 时模型按 mask 分组返回，取第一组
	var grouped [][]api.MaskFill
	if err := decodeOutput(p.logger, TaskFillMask, raw, &grouped); err != nil {
		return nil, err
	}
	if len(grouped) == 0 {
		return []api.MaskFill{}, nil
	}
	return grouped[0], nil
}

// Similarity scores sentence against source.
func (p *TextProcessor) Similarity(ctx context.Context, source, sentence string) (float64, error) {
	raw, err := p.runner.Run(ctx, TaskSentenceSimilarity, Input{
		Inputs: map[string]any{
			"source_sentence": source,
			"sentences":       []string{sentence},
		},
	})
	if err != nil {
		return 0, err
	}

	var scores []float64
	if err := decodeOutput(p.logger, TaskSentenceSimilarity, raw, &scores); err != nil {
		return 0, err
	}
	if len(scores) != 1 {
		return 0, unexpected(p.logger, TaskSentenceSimilarity, raw, "expected exactly one score")
	}
	return scores[0], nil
}
