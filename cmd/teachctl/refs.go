package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ai-teacher/internal/ai"
	"ai-teacher/internal/app"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/vectorstore"
)

var (
	refsFolder string
	refsOut    string
	refsTopic  string
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Manage reference vector stores",
}

var refsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a reference store from a folder of PDFs",
	Long: `Indexes every PDF in a folder into a new reference store.
With --topic the topic's References folder and References-VS store are used.
Otherwise both --folder and --out are required.`,
	RunE: runRefsBuild,
}

func init() {
	refsBuildCmd.Flags().StringVar(&refsFolder, "folder", "", "folder containing reference PDFs")
	refsBuildCmd.Flags().StringVar(&refsOut, "out", "", "output store directory")
	refsBuildCmd.Flags().StringVar(&refsTopic, "topic", "", "build the store of a registered topic")
	refsCmd.AddCommand(refsBuildCmd)
	rootCmd.AddCommand(refsCmd)
}

func runRefsBuild(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	folder, out := refsFolder, refsOut
	if refsTopic != "" {
		registry := topic.NewRegistry(cfg.Storage.TopicsDir, log)
		if err := registry.Refresh(); err != nil {
			return err
		}
		t, ok := registry.Get(refsTopic)
		if !ok {
			return fmt.Errorf("unknown topic %q", refsTopic)
		}
		folder, out = t.ReferencesDir(), t.ReferencePath()
	}
	if folder == "" || out == "" {
		return errors.New("either --topic or both --folder and --out are required")
	}

	embedder := ai.NewOpenAIEmbedder(ai.OpenAIConfig{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		EmbeddingModel:     cfg.OpenAI.EmbeddingModel,
		EmbeddingDimension: cfg.OpenAI.EmbeddingDimension,
	})
	builder := app.NewReferenceBuilder(vectorstore.NewManager(embedder, log), cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, log)

	cmd.Printf("Building reference store from %s...\n", folder)
	report, err := builder.BuildFromFolder(cmd.Context(), folder, out)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	cmd.Printf("Indexed %d files into %d chunks at %s.\n", report.Files, report.Chunks, out)
	return nil
}
