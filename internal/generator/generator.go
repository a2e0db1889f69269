package generator

import (
	"context"
	"fmt"

	"sweetswap/internal/models"

	"go.uber.org/zap"
)

const defaultNotes = "Diabetes-friendly alternative"

// fallbackSugarDelta is assumed only when nutrition context was available
const fallbackSugarDelta = -20.0

// Completer is any text-generation backend (usually an llm.MultiProviderClient)
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Generator proposes lower-sugar substitutes. It never fails: any problem
// with the backend or its output yields Fallback.
type Generator struct {
	completer Completer
	logger    *zap.Logger
}

// New creates a generator. A nil completer means no generation credential is
// configured and every call returns the fallback.
func New(completer Completer, logger *zap.Logger) *Generator {
	return &Generator{
		completer: completer,
		logger:    logger,
	}
}

// Enabled reports whether a backend is configured
func (g *Generator) Enabled() bool {
	return g.completer != nil
}

// Generate proposes a substitute for drinkName
func (g *Generator) Generate(ctx context.Context, drinkName string, nutrition models.NutrientSnapshot) models.SubstituteCandidate {
	if g.completer == nil {
		g.logger.Debug("No generation provider configured, using fallback",
			zap.String("drink", drinkName))
		return Fallback(drinkName, nutrition)
	}

	text, err := g.completer.Complete(ctx, SystemInstruction, BuildPrompt(drinkName, nutrition))
	if err != nil {
		g.logger.Warn("Generation failed, using fallback",
			zap.String("drink", drinkName),
			zap.Error(err))
		return Fallback(drinkName, nutrition)
	}

	candidate, err := ParseCandidate(text)
	if err != nil {
		g.logger.Warn("Failed to parse generated substitute, using fallback",
			zap.String("drink", drinkName),
			zap.String("response", text),
			zap.Error(err))
		return Fallback(drinkName, nutrition)
	}

	g.logger.Debug("Generated substitute",
		zap.String("drink", drinkName),
		zap.String("substitute", candidate.Name))

	return candidate
}

// Fallback is the deterministic substitute used when generation is unavailable
func Fallback(drinkName string, nutrition models.NutrientSnapshot) models.SubstituteCandidate {
	candidate := models.SubstituteCandidate{
		Name: "Unsweetened " + drinkName,
		Notes: fmt.Sprintf("Lower sugar alternative for %s. Consider using sugar-free sweeteners or unsweetened bases.",
			drinkName),
	}
	if nutrition.HasValues() {
		candidate.SugarDelta = models.Float(fallbackSugarDelta)
	}
	return candidate
}
