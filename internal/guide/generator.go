package guide

import (
	"fmt"
	"log/slog"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Generator produces project guides and roadmaps through the chat
// orchestrator. Malformed model output is never an error here: parsing is
// best-effort and the repair pass fills everything the model got wrong.
type Generator struct {
	Orchestrator domain.ChatOrchestrator
	Temperature  float64
	MaxTokens    int
}

// NewGenerator constructs a Generator.
func NewGenerator(orch domain.ChatOrchestrator, temperature float64, maxTokens int) *Generator {
	return &Generator{Orchestrator: orch, Temperature: temperature, MaxTokens: maxTokens}
}

// GenerateGuide builds a complete, repaired project guide. Only a failed
// model call returns an error; any response content yields a usable guide.
func (g *Generator) GenerateGuide(ctx domain.Context, params domain.ProjectParams) (domain.GuideDocument, error) {
	result, err := g.Orchestrator.Chat(ctx, domain.ChatCallRequest{
		Messages: []domain.ChatMessage{
			{Role: "system", Content: "You generate structured project guides as strict JSON. Output JSON only, no prose, no markdown fences."},
			{Role: "user", Content: guidePrompt(params)},
		},
		Temperature:  g.Temperature,
		MaxTokens:    g.MaxTokens,
		JSONResponse: true,
	})
	if err != nil {
		return domain.GuideDocument{}, fmt.Errorf("guide generation: %w", err)
	}

	raw := parseGuide(result.Content)
	doc := repairGuide(raw, params)
	slog.Info("guide generated",
		slog.String("project", params.Title),
		slog.String("model", result.Model),
		slog.Bool("fallback", result.IsFallback),
		slog.Int("files", len(doc.FileDocumentation)))
	return doc, nil
}

// GenerateRoadmap builds a complete, repaired task roadmap.
func (g *Generator) GenerateRoadmap(ctx domain.Context, params domain.ProjectParams) (domain.TaskRoadmap, error) {
	result, err := g.Orchestrator.Chat(ctx, domain.ChatCallRequest{
		Messages: []domain.ChatMessage{
			{Role: "system", Content: "You generate project task roadmaps as strict JSON. Output JSON only, no prose, no markdown fences."},
			{Role: "user", Content: roadmapPrompt(params)},
		},
		Temperature:  g.Temperature,
		MaxTokens:    g.MaxTokens,
		JSONResponse: true,
	})
	if err != nil {
		return domain.TaskRoadmap{}, fmt.Errorf("roadmap generation: %w", err)
	}

	raw := parseRoadmap(result.Content)
	roadmap := repairRoadmap(raw, params)
	slog.Info("roadmap generated",
		slog.String("project", params.Title),
		slog.String("model", result.Model),
		slog.Bool("fallback", result.IsFallback),
		slog.Int("tasks", totalTasks(roadmap.Milestones)))
	return roadmap, nil
}
