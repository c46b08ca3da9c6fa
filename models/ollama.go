package models

// OllamaEmbedRequest is the body for the Ollama embedding API, used by
// the semantic note index.
type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbedResponse carries the embedding vector back.
type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
