package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/pgvector/pgvector-go"

	database "github.com/Quekzhengseng/ggdotcom/app/db"
	"github.com/Quekzhengseng/ggdotcom/config"
	generativeAI "github.com/Quekzhengseng/ggdotcom/internal/api/generative_ai"
)

// corpusEntry is one snippet from the offline scrape, ready to embed.
type corpusEntry struct {
	Collection     string            `json:"collection"`
	Content        string            `json:"content"`
	Name           string            `json:"name"`
	AttractionType string            `json:"attraction_type"`
	Metadata       map[string]string `json:"metadata"`
	Lat            *float64          `json:"lat"`
	Lng            *float64          `json:"lng"`
}

// Embeds a scraped corpus file and loads it into the documents table.
//
// Usage: go run scripts/generate_embeddings.go -input corpus.json
func main() {
	inputPath := flag.String("input", "corpus.json", "path to the scraped corpus JSON file")
	flag.Parse()

	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, dbConfig.ConnectionURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	embedder, err := generativeAI.NewEmbeddingService(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Gemini.EmbeddingModel, logger)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	entries, err := loadCorpus(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	logger.Info("Corpus loaded", slog.Int("entries", len(entries)), slog.String("path", *inputPath))

	inserted := 0
	for i, entry := range entries {
		if entry.Content == "" || entry.Collection == "" {
			logger.Warn("Skipping entry without content or collection", slog.Int("index", i))
			continue
		}

		vector, err := embedder.Embed(ctx, entry.Content)
		if err != nil {
			logger.Error("Embedding failed, skipping entry",
				slog.Int("index", i), slog.String("name", entry.Name), slog.Any("error", err))
			continue
		}
		if len(vector) != generativeAI.EmbeddingDimensions {
			logger.Error("Embedding width mismatch, skipping entry",
				slog.Int("index", i), slog.String("name", entry.Name),
				slog.Int("dimensions", len(vector)))
			continue
		}

		metadata := entry.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}

		_, err = dbpool.Exec(ctx, `
            INSERT INTO documents (collection, content, name, attraction_type, metadata, lat, lng, embedding)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, entry.Collection, entry.Content, entry.Name, entry.AttractionType, metadata,
			entry.Lat, entry.Lng, pgvector.NewVector(vector))
		if err != nil {
			logger.Error("Insert failed, skipping entry",
				slog.Int("index", i), slog.String("name", entry.Name), slog.Any("error", err))
			continue
		}
		inserted++

		if inserted%50 == 0 {
			logger.Info("Progress", slog.Int("inserted", inserted), slog.Int("total", len(entries)))
		}
	}

	logger.Info("Corpus ingestion complete", slog.Int("inserted", inserted), slog.Int("total", len(entries)))
}

func loadCorpus(path string) ([]corpusEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []corpusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}
