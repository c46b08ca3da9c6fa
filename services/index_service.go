package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/parishlabs/discern/models"
)

// Chunking bounds for the semantic index.
const (
	indexChunkSize    = 1000
	indexChunkOverlap = 100
	embeddingModel    = "nomic-embed-text:v1.5"
)

// IndexService maintains the derived semantic index over notes: note
// content is chunked, embedded through Ollama, and stored in Chroma
// keyed by note id. The JSON note store stays authoritative; this index
// can always be rebuilt from it.
type IndexService struct {
	collection chromago.Collection
	httpClient *http.Client
	ollamaURL  string
}

// NewIndexService wires the index to a Chroma collection and an Ollama
// embedding endpoint (e.g. http://localhost:11434/api/embeddings).
func NewIndexService(collection chromago.Collection, client *http.Client, ollamaURL string) *IndexService {
	return &IndexService{
		collection: collection,
		httpClient: client,
		ollamaURL:  ollamaURL,
	}
}

// IndexNote chunks and embeds one note. Implements NoteIndexer.
func (s *IndexService) IndexNote(ctx context.Context, domain string, note models.Note) error {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(indexChunkSize),
		textsplitter.WithChunkOverlap(indexChunkOverlap),
	)
	chunks, err := splitter.SplitText(note.Content)
	if err != nil {
		return fmt.Errorf("could not split note %s: %w", note.ID, err)
	}

	for i, chunk := range chunks {
		vector, err := s.embedWithOllama(ctx, chunk)
		if err != nil {
			return fmt.Errorf("could not embed chunk %d of note %s: %w", i, note.ID, err)
		}
		embedding := embeddings.NewEmbeddingFromFloat32(vector)
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("note_id", note.ID),
			chromago.NewStringAttribute("domain", domain),
			chromago.NewStringAttribute("category", note.Category),
			chromago.NewIntAttribute("chunk_num", int64(i)),
		)
		docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", note.ID, i))
		err = s.collection.Add(ctx,
			chromago.WithIDs(docID),
			chromago.WithTexts(chunk),
			chromago.WithEmbeddings(embedding),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d of note %s: %w", i, note.ID, err)
		}
	}
	log.Printf("INDEX: Indexed note %s as %d chunks", note.ID, len(chunks))
	return nil
}

// RemoveNote deletes every chunk derived from the note. Implements
// NoteIndexer.
func (s *IndexService) RemoveNote(ctx context.Context, noteID string) error {
	where := chromago.EqString("note_id", noteID)
	return s.collection.Delete(ctx, chromago.WithWhereDelete(where))
}

// Query embeds the query and returns the closest note chunks within a
// domain.
func (s *IndexService) Query(ctx context.Context, domain, query string, nResults int) ([]models.SemanticHit, error) {
	vector, err := s.embedWithOllama(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}
	embedding := embeddings.NewEmbeddingFromFloat32(vector)

	results, err := s.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(nResults),
		chromago.WithWhereQuery(chromago.EqString("domain", domain)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query semantic index: %w", err)
	}

	var hits []models.SemanticHit
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return hits, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		hit := models.SemanticHit{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			// DocumentMetadata exposes no value accessor; round-trip
			// through JSON like the rest of the chroma-go callers do.
			if jsonBytes, err := json.Marshal(metadataGroups[0][i]); err == nil {
				var metaMap map[string]interface{}
				if err := json.Unmarshal(jsonBytes, &metaMap); err == nil {
					if id, ok := metaMap["note_id"].(string); ok {
						hit.NoteID = id
					}
					if category, ok := metaMap["category"].(string); ok {
						hit.Category = category
					}
				}
			}
		}
		hits = append(hits, hit)
	}
	log.Printf("INDEX: Query returned %d hits", len(hits))
	return hits, nil
}

// embedWithOllama generates an embedding vector through the Ollama API.
func (s *IndexService) embedWithOllama(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(models.OllamaEmbedRequest{
		Model:  embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ollamaURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp models.OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return ollamaResp.Embedding, nil
}
