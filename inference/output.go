package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/types"
)

// Runner executes one inference call. Registry implements it.
type Runner interface {
	Run(ctx context.Context, task Task, in Input) (json.RawMessage, error)
}

const maxLoggedOutput = 512

// decodeOutput maps raw model output into dst, rejecting shapes that do not fit.
func decodeOutput(logger *zap.Logger, task Task, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("unexpected model output",
			zap.String("task", string(task)),
			zap.String("output", truncate(raw)),
			zap.Error(err))
		return types.NewUnexpectedOutputError(string(task), err)
	}
	return nil
}

// decodeFirst accepts either a single object or a non-empty list of them.
func decodeFirst[T any](logger *zap.Logger, task Task, raw json.RawMessage) (T, error) {
	var one T
	if isJSONArray(raw) {
		var list []T
		if err := decodeOutput(logger, task, raw, &list); err != nil {
			return one, err
		}
		if len(list) == 0 {
			return one, unexpected(logger, task, raw, "empty list")
		}
		return list[0], nil
	}
	err := decodeOutput(logger, task, raw, &one)
	return one, err
}

func unexpected(logger *zap.Logger, task Task, raw json.RawMessage, reason string) error {
	logger.Warn("unexpected model output",
		zap.String("task", string(task)),
		zap.String("output", truncate(raw)),
		zap.String("reason", reason))
	return types.NewUnexpectedOutputError(string(task), fmt.Errorf("%s", reason))
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func truncate(raw json.RawMessage) string {
	if len(raw) <= maxLoggedOutput {
		return string(raw)
	}
	return string(raw[:maxLoggedOutput]) + "..."
}
