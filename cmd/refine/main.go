// Command refine runs the full review pipeline over one story and prints
// the export to stdout. Logs go to stderr so the output stays pipeable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/core/config"
	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/export"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/parse"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/session"
)

func main() {
	filePath := flag.String("file", "", "read the story from this file instead of stdin")
	language := flag.String("language", "", "output language, de or en (default from config)")
	format := flag.String("format", "markdown", "export format, markdown or json")
	stagesOnly := flag.Bool("stages-only", false, "run the analysis stages without acceptance criteria generation")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeRefine)
	if err != nil {
		fail("failed to load config", err)
	}
	setupLogger(cfg)

	exportFormat, err := export.ParseFormat(*format)
	if err != nil {
		fail("invalid format flag", err)
	}
	if *language != "" && *language != "de" && *language != "en" {
		fail("invalid language flag", fmt.Errorf("unsupported language %q", *language))
	}

	text, err := readStory(*filePath)
	if err != nil {
		fail("failed to read story", err)
	}
	if strings.TrimSpace(text) == "" {
		fail("failed to read story", fmt.Errorf("story text is empty"))
	}

	if err := id.Init(1); err != nil {
		fail("failed to initialize snowflake id generator", err)
	}

	llmClient, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		fail("failed to initialize llm client", err)
	}

	eng := engine.New(llmClient, engine.Config{
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
		Temperature:  cfg.Pipeline.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Language:     cfg.Pipeline.Language,
	})
	runner := pipeline.NewRunner(eng)

	sess := session.New(id.New(), strings.TrimSpace(text))
	parsed := parse.Structure(text)
	if parsed.Structured != nil {
		sess.SetStructured(parsed.Structured)
	}
	slog.Info("story parsed",
		"structure_detected", parsed.Structured != nil,
		"language", parsed.Language,
		"completeness", parsed.Completeness)

	// Stage failures are tolerated by the runner and render in the export;
	// only unusable input aborts the run.
	res, err := runner.Run(ctx, pipeline.RunInput{
		StoryText:  sess.Story().CurrentText,
		Structured: sess.Story().StructuredModel,
		Language:   *language,
		Stages:     selectStages(*stagesOnly),
		OnStageComplete: func(sr model.StageResult) {
			slog.Info("stage settled",
				"stage", sr.Stage,
				"status", sr.Status,
				"findings", len(sr.FindingIDs),
				"duration_ms", sr.DurationMS)
		},
	})
	if err != nil {
		fail("pipeline run failed", err)
	}
	sess.ApplyRunResult(res)

	out, err := export.Project(sess.Snapshot(), exportFormat)
	if err != nil {
		fail("failed to render export", err)
	}
	fmt.Println(out)
}

// selectStages returns the restriction for -stages-only; a nil slice means
// the full pipeline including criteria generation.
func selectStages(stagesOnly bool) []model.Stage {
	if !stagesOnly {
		return nil
	}
	stages := make([]model.Stage, 0, len(model.StageOrder)-1)
	for _, s := range model.StageOrder {
		if s == model.StageAcceptanceCriteria {
			continue
		}
		stages = append(stages, s)
	}
	return stages
}

func readStory(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fail(msg string, err error) {
	// The logger may not be set up yet; write plainly to stderr as well.
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	slog.SetDefault(slog.New(handler))
}
