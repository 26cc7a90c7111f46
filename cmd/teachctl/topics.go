package main

import (
	"os"

	"github.com/spf13/cobra"

	"ai-teacher/internal/topic"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect the topic registry",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered topics and whether their reference store exists",
	RunE:  runTopicsList,
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)
	rootCmd.AddCommand(topicsCmd)
}

func runTopicsList(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry := topic.NewRegistry(cfg.Storage.TopicsDir, log)
	if err := registry.Refresh(); err != nil {
		return err
	}

	topics := registry.Topics()
	if len(topics) == 0 {
		cmd.Println("No topics registered.")
		return nil
	}
	for _, t := range topics {
		refs := "no references"
		if _, err := os.Stat(t.ReferencePath()); err == nil {
			refs = "references ready"
		}
		cmd.Printf("%s\t%s\n", t.ID, refs)
	}
	return nil
}
