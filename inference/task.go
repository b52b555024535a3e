package inference

import "fmt"

// Task 推理任务名
type Task string

const (
	TaskTextClassification  Task = "text-classification"
	TaskSentiment           Task = "sentiment-analysis"
	TaskSummarization       Task = "summarization"
	TaskQuestionAnswering   Task = "question-answering"
	TaskZeroShot            Task = "zero-shot-classification"
	TaskFillMask            Task = "fill-mask"
	TaskSentenceSimilarity  Task = "sentence-similarity"
	TaskImageClassification Task = "image-classification"
	TaskObjectDetection     Task = "object-detection"
	TaskImageSegmentation   Task = "image-segmentation"
	TaskDocumentQA          Task = "document-question-answering"
)

// AllTasks 列出全部任务，顺序固定
func AllTasks() []Task {
	return []Task{
		TaskTextClassification,
		TaskSentiment,
		TaskSummarization,
		TaskQuestionAnswering,
		TaskZeroShot,
		TaskFillMask,
		TaskSentenceSimilarity,
		TaskImageClassification,
		TaskObjectDetection,
		TaskImageSegmentation,
		TaskDocumentQA,
	}
}

// ModelSet 每个任务固定使用的模型 ID
type ModelSet map[Task]string

// Model 返回任务对应的模型
func (m ModelSet) Model(task Task) (string, error) {
	model, ok := m[task]
	if !ok || model == "" {
		return "", fmt.Errorf("no model configured for task %q", task)
	}
	return model, nil
}
