// Package api defines the wire types of the LokingAI HTTP API.
//
// # API Overview
//
// LokingAI exposes one router per input modality, each mounted under its
// own prefix:
//   - /text      classification, sentiment, summarization, question answering,
//     zero-shot labelling, mask filling and sentence similarity
//   - /image     classification, object detection and segmentation
//   - /document  question answering over an uploaded image or PDF
//   - /video, /audio  descriptors only
//
// Every endpoint answers with the same envelope:
//
//	{"error": null, "data": ...}
//	{"error": "invalid-file-type", "data": null, "detail": "invalid file type"}
//
// Failures always carry a 4xx or 5xx status code together with the envelope.
//
// # Authentication
//
// When API keys are configured, requests must send the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
