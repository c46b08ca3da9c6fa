package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/parishlabs/discern/controller"
	"github.com/parishlabs/discern/services"
	"github.com/parishlabs/discern/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	dataDir := envOr("DATA_DIR", "./data")
	fileStorage, err := storage.NewFileStorage(dataDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to prepare data directory: %v", err)
	}

	stores := services.NewDomainStores(fileStorage)
	saved := services.NewSavedResults(fileStorage)
	history := services.NewHistory(fileStorage)

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// AI insight adapter. Without a key the flows still run; every
	// search degrades to web results plus the local fallback sentence.
	var insight services.InsightService
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to create Gemini client: %v", err)
		}
		insight = services.NewGeminiInsightService(geminiClient, "gemini-2.5-flash")
		log.Println("Successfully connected to Google Gemini.")
	} else {
		log.Println("WARN: GEMINI_API_KEY not set; AI insights disabled.")
	}

	search := services.NewSerpSearchService(
		httpClient,
		envOr("SERPAPI_URL", "https://serpapi.com/search.json"),
		os.Getenv("SERPAPI_KEY"),
	)

	fetcher := services.NewPageFetcher(20 * time.Second)

	// Semantic index over notes, optional: the JSON store is
	// authoritative either way.
	var index *services.IndexService
	if chromaURL := os.Getenv("CHROMA_URL"); chromaURL != "" {
		index = buildIndexService(chromaURL, envOr("OLLAMA_URL", "http://localhost:11434/api/embeddings"), httpClient)
	} else {
		log.Println("WARN: CHROMA_URL not set; semantic search disabled.")
	}

	var indexer services.NoteIndexer
	if index != nil {
		indexer = index
	}
	research := services.NewResearchService(search, insight, stores, saved, fetcher, indexer)
	wizard := services.NewWizardService(research, history)
	collection := services.NewCollectionService(stores)

	researchController := controller.NewResearchController(research, fileStorage)
	wizardController := controller.NewWizardController(wizard)
	collectionController := controller.NewCollectionController(collection, index)

	// Reload stores when another writer touches the data directory.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	watcher := services.NewStoreWatcher(fileStorage.Dir(), stores.All()[services.DomainChurch], stores.All()[services.DomainCommunity])
	go watcher.Watch(watchCtx)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Discernment Research API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/context", researchController.GetContext)
		apiV1.PUT("/context", researchController.SetContext)

		apiV1.POST("/research/:domain/search", researchController.Search)
		apiV1.POST("/research/:domain/annotate", researchController.Annotate)

		apiV1.GET("/notes/:domain", researchController.GetNotes)
		apiV1.POST("/notes/:domain", researchController.AddNote)
		apiV1.PUT("/notes/:domain/:id", researchController.UpdateNote)
		apiV1.DELETE("/notes/:domain/:id", researchController.DeleteNote)
		apiV1.POST("/notes/:domain/import", researchController.ImportDocument)

		apiV1.POST("/wizard/:domain/sessions", wizardController.CreateSession)
		apiV1.GET("/wizard/:domain/sessions/:id", wizardController.GetSession)
		apiV1.POST("/wizard/:domain/sessions/:id/step", wizardController.SetStep)
		apiV1.POST("/wizard/:domain/sessions/:id/search", wizardController.Search)
		apiV1.POST("/wizard/:domain/sessions/:id/annotate", wizardController.Annotate)
		apiV1.POST("/wizard/:domain/sessions/:id/complete", wizardController.Complete)

		apiV1.GET("/collection/:domain", collectionController.View)
		apiV1.GET("/collection/:domain/export", collectionController.Export)
		apiV1.POST("/collection/:domain/semantic", collectionController.Semantic)
	}

	port := envOr("PORT", "8080")
	log.Printf("Discernment research server starting on http://localhost:%s", port)
	log.Printf("Health check available at: http://localhost:%s/health", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// buildIndexService connects to Chroma; a failure disables semantic
// search instead of stopping the server.
func buildIndexService(chromaURL, ollamaURL string, httpClient *http.Client) *services.IndexService {
	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(chromaURL))
	if err != nil {
		log.Printf("WARN: Failed to create chroma client: %v; semantic search disabled.", err)
		return nil
	}

	collection, err := chromaClient.GetOrCreateCollection(
		context.Background(),
		"discern-notes",
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Semantic index over research notes"),
				chromago.NewStringAttribute("created_by", "discern"),
			),
		),
	)
	if err != nil {
		log.Printf("WARN: Failed to get or create chroma collection: %v; semantic search disabled.", err)
		return nil
	}

	log.Println("Successfully connected to Chroma; semantic search enabled.")
	return services.NewIndexService(collection, httpClient, ollamaURL)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
