// Package main 初始化数据库表结构与向量集合，并可选导入文档
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/infrastructure/embedding"
	"warehouse-assistant-api/internal/infrastructure/persistence/milvus"
	"warehouse-assistant-api/internal/infrastructure/persistence/postgres"
)

// seedDocument 导入文件中的单条文档
type seedDocument struct {
	ID          string `json:"id,omitempty"`
	Source      string `json:"source"`
	Content     string `json:"content"`
	SKU         string `json:"sku,omitempty"`
	EquipmentID string `json:"equipment_id,omitempty"`
	Location    string `json:"location,omitempty"`
	ContentTime string `json:"content_time,omitempty"`
}

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 1. PostgreSQL 表结构
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer func() { _ = pgClient.Close() }()

	warehouseRepo := postgres.NewWarehouseRepository(pgClient)
	if err := warehouseRepo.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate warehouse tables: %v", err)
	}
	fmt.Println("Warehouse tables migrated.")

	// 2. Milvus 集合与索引
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Fatalf("failed to connect milvus: %v", err)
	}
	defer func() { _ = milvusClient.Close() }()

	milvusRepo := milvus.NewRepository(milvusClient)
	if err := milvusRepo.EnsureCollections(ctx); err != nil {
		log.Fatalf("failed to ensure milvus collections: %v", err)
	}
	fmt.Println("Milvus collections ready.")

	// 3. 可选：导入文档（JSON 数组，见 seedDocument）
	docsFile := os.Getenv("BOOTSTRAP_DOCS_FILE")
	if docsFile == "" {
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	data, err := os.ReadFile(docsFile)
	if err != nil {
		log.Fatalf("failed to read docs file: %v", err)
	}
	var seeds []seedDocument
	if err := json.Unmarshal(data, &seeds); err != nil {
		log.Fatalf("failed to parse docs file: %v", err)
	}
	if len(seeds) == 0 {
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	embedder := embedding.NewClient(&cfg.Embedding)

	texts := make([]string, len(seeds))
	for i, s := range seeds {
		texts[i] = s.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		log.Fatalf("failed to embed documents: %v", err)
	}

	docs := make([]*milvus.WarehouseDocument, len(seeds))
	for i, s := range seeds {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := &milvus.WarehouseDocument{
			ID:          id,
			Vector:      vectors[i],
			Source:      s.Source,
			Content:     s.Content,
			SKU:         s.SKU,
			EquipmentID: s.EquipmentID,
			Location:    s.Location,
		}
		if s.ContentTime != "" {
			t, err := time.Parse(time.RFC3339, s.ContentTime)
			if err != nil {
				log.Fatalf("invalid content_time %q: %v", s.ContentTime, err)
			}
			doc.ContentTime = t.Unix()
		}
		docs[i] = doc
	}

	if err := milvusRepo.InsertDocuments(ctx, docs); err != nil {
		log.Fatalf("failed to insert documents: %v", err)
	}
	fmt.Printf("Imported %d documents.\n", len(docs))

	fmt.Println("Bootstrap completed successfully.")
}
