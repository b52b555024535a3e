package inference

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/internal/imaging"
	"github.com/BaSui01/lokingai/types"
)

// Mask is one decoded segmentation mask.
type Mask struct {
	Label string
	Score float64
	Image image.Image
}

type rawMask struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
	Mask  string   `json:"mask"`
}

// ImageProcessor runs the image tasks. Inputs are the raw image bytes as
// uploaded; the caller has already validated them.
type ImageProcessor struct {
	runner Runner
	logger *zap.Logger
}

// NewImageProcessor creates an ImageProcessor.
func NewImageProcessor(runner Runner, logger *zap.Logger) *ImageProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessor{runner: runner, logger: logger.With(zap.String("component", "image_processor"))}
}

func imageInput(data []byte, contentType string) Input {
	return Input{Raw: data, ContentType: contentType}
}

// Classify returns the ranked labels for the image.
func (p *ImageProcessor) Classify(ctx context.Context, data []byte, contentType string) ([]api.Classification, error) {
	raw, err := p.runner.Run(ctx, TaskImageClassification, imageInput(data, contentType))
	if err != nil {
		return nil, err
	}
	var out []api.Classification
	if err := decodeOutput(p.logger, TaskImageClassification, raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectObjects returns every detected object with its bounding box.
func (p *ImageProcessor) DetectObjects(ctx context.Context, data []byte, contentType string) ([]api.Detection, error) {
	raw, err := p.runner.Run(ctx, TaskObjectDetection, imageInput(data, contentType))
	if err != nil {
		return nil, err
	}
	var out []api.Detection
	if err := decodeOutput(p.logger, TaskObjectDetection, raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Segment returns the decoded mask of every segment.
func (p *ImageProcessor) Segment(ctx context.Context, data []byte, contentType string) ([]Mask, error) {
	raw, err := p.runner.Run(ctx, TaskImageSegmentation, imageInput(data, contentType))
	if err != nil {
		return nil, err
	}

	var segments []rawMask
	if err := decodeOutput(p.logger, TaskImageSegmentation, raw, &segments); err != nil {
		return nil, err
	}

	masks := make([]Mask, 0, len(segments))
	for i, s := range segments {
		decoded, err := imaging.DecodeBase64(s.Mask)
		if err != nil {
			p.logger.Warn("undecodable segmentation mask",
				zap.Int("index", i),
				zap.String("label", s.Label),
				zap.Error(err))
			return nil, types.NewUnexpectedOutputError(string(TaskImageSegmentation),
				fmt.Errorf("mask %d: %w", i, err))
		}
		m := Mask{Label: s.Label, Image: decoded.Image}
		if s.Score != nil {
			m.Score = *s.Score
		}
		masks = append(masks, m)
	}
	return masks, nil
}
