// Package huggingface implements inference.Backend over the Hugging Face
// Inference API.
//
// Every pipeline posts to {base}/models/{model}. Text tasks send a JSON body
// of the form {"inputs": ..., "parameters": ..., "options": {...}}; image
// tasks send the raw image bytes with their content type. Upstream HTTP
// failures are mapped to types.Error codes so handlers can answer with a
// matching status.
package huggingface
