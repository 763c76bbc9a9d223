package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/narravox/sentinel/internal/config"
	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/guardian"
	"github.com/narravox/sentinel/internal/ingest"
	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/source"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/internal/storage/postgres"
	"github.com/narravox/sentinel/internal/storage/sqlite"
	"github.com/narravox/sentinel/internal/triage"
)

// engineStore is the full storage surface the engine runs on. Both backends
// implement all three facets.
type engineStore interface {
	storage.ChunkStore
	storage.StateStore
	storage.RosterStore
	Close() error
}

// app holds the wired engine components shared by all subcommands.
type app struct {
	cfg      *config.Config
	store    engineStore
	gen      *genai.Generator
	embedder genai.EmbeddingGenerator
	writer   *notify.EventWriter
	src      *source.Filesystem
}

// newApp loads configuration and wires storage, providers, and the document
// source. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	gen, embedder := buildGenAI(cfg)

	src, err := source.NewFilesystem(cfg.Vault.Root)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open vault root: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		gen:      gen,
		embedder: embedder,
		writer:   notify.NewEventWriter(cfg.Storage.DataPath),
		src:      src,
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

func (a *app) scope() string {
	return a.cfg.Vault.ScopeID
}

func (a *app) pipeline() *ingest.Pipeline {
	return ingest.NewPipeline(a.src, a.store, a.store, a.embedder, a.writer)
}

func (a *app) sorter() *triage.Sorter {
	return triage.NewSorter(a.gen, a.embedder, a.store, a.store, a.writer)
}

func (a *app) guardian() (*guardian.Guardian, error) {
	g, err := guardian.New(a.gen, a.embedder, a.store, a.store, a.store, a.writer)
	if err != nil {
		return nil, err
	}
	g.LoreGlobs = a.cfg.Vault.LoreGlobs
	return g, nil
}

func openStore(cfg *config.Config) (engineStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresURL)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.New(filepath.Join(cfg.Storage.DataPath, "sentinel.db"))
	}
}

func buildGenAI(cfg *config.Config) (*genai.Generator, genai.EmbeddingGenerator) {
	var (
		flash, strict genai.Provider
		embedder      genai.EmbeddingGenerator
	)

	switch cfg.LLM.LLMProvider {
	case "openai":
		flash = genai.NewOpenAIClient(genai.OpenAIConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
			Model:  cfg.LLM.OpenAIFlashModel,
		})
		strict = genai.NewOpenAIClient(genai.OpenAIConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
			Model:  cfg.LLM.OpenAIStrictModel,
		})
		embedder = genai.NewOpenAIEmbeddingClient(genai.OpenAIConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
			Model:  cfg.LLM.OpenAIEmbeddingModel,
		})
	default:
		flash = genai.NewOllamaClient(genai.OllamaConfig{
			BaseURL: cfg.LLM.OllamaURL,
			Model:   cfg.LLM.OllamaFlashModel,
		})
		strict = genai.NewOllamaClient(genai.OllamaConfig{
			BaseURL: cfg.LLM.OllamaURL,
			Model:   cfg.LLM.OllamaStrictModel,
		})
		embedder = genai.NewOllamaEmbeddingClient(genai.OllamaConfig{
			BaseURL: cfg.LLM.OllamaURL,
			Model:   cfg.LLM.OllamaEmbeddingModel,
		})
	}

	gen := genai.NewGenerator(flash, strict, genai.GeneratorConfig{
		MaxAttempts:       cfg.LLM.MaxAttempts,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	return gen, embedder
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
