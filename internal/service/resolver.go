package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sweetswap/internal/models"
	"sweetswap/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a substitution or drink does not exist
	ErrNotFound = errors.New("substitution not found")
	// ErrInvalidDrinkName is returned for blank drink names
	ErrInvalidDrinkName = errors.New("drink name is required")
)

// maxCreateAttempts bounds retries after losing a drink-name race
const maxCreateAttempts = 3

// NutritionEnricher looks up nutrient values for a drink name
type NutritionEnricher interface {
	Enrich(ctx context.Context, drinkName string) (models.NutrientSnapshot, error)
}

// SubstituteGenerator proposes a substitute; it must not fail
type SubstituteGenerator interface {
	Generate(ctx context.Context, drinkName string, nutrition models.NutrientSnapshot) models.SubstituteCandidate
}

// Resolution is the outcome of Resolve
type Resolution struct {
	View     *models.SubstitutionView
	CacheHit bool
}

// Resolver maps drink names to substitutes, reusing stored results when it can
type Resolver struct {
	repo      repository.CatalogRepository
	enricher  NutritionEnricher
	generator SubstituteGenerator
	logger    *zap.Logger
}

// NewResolver creates a new resolution service
func NewResolver(
	repo repository.CatalogRepository,
	enricher NutritionEnricher,
	generator SubstituteGenerator,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		repo:      repo,
		enricher:  enricher,
		generator: generator,
		logger:    logger,
	}
}

// Resolve returns the latest stored substitution for drinkName, or generates,
// stores and returns a new one. Only store failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, drinkName string, includeNutrition bool) (*Resolution, error) {
	name := strings.TrimSpace(drinkName)
	if name == "" {
		return nil, ErrInvalidDrinkName
	}

	cached, err := r.findCached(ctx, name)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		r.logger.Debug("Substitution cache hit",
			zap.String("drink", name),
			zap.Int64("id", cached.ID))
		return &Resolution{View: models.NewSubstitutionView(cached), CacheHit: true}, nil
	}

	var nutrition models.NutrientSnapshot
	if includeNutrition {
		nutrition = r.enrich(ctx, name)
	}

	candidate := r.generator.Generate(ctx, name, nutrition)

	id, err := r.persist(ctx, name, nutrition, candidate)
	if err != nil {
		return nil, err
	}

	// Read back so misses and later hits render the same stored values
	stored, err := r.repo.GetSubstitution(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload substitution: %w", err)
	}

	r.logger.Info("Substitution created",
		zap.String("drink", name),
		zap.String("substitute", stored.SubstituteName),
		zap.Int64("id", stored.ID))

	return &Resolution{View: models.NewSubstitutionView(stored), CacheHit: false}, nil
}

func (r *Resolver) findCached(ctx context.Context, name string) (*models.Substitution, error) {
	drink, err := r.repo.FindDrinkByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up drink: %w", err)
	}

	sub, err := r.repo.FindLatestSubstitution(ctx, drink.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up substitution: %w", err)
	}
	return sub, nil
}

// enrich downgrades enricher failures to an empty snapshot
func (r *Resolver) enrich(ctx context.Context, name string) models.NutrientSnapshot {
	if r.enricher == nil {
		return models.NutrientSnapshot{}
	}

	snapshot, err := r.enricher.Enrich(ctx, name)
	if err != nil {
		r.logger.Warn("Nutrition lookup failed, continuing without it",
			zap.String("drink", name),
			zap.Error(err))
		return models.NutrientSnapshot{}
	}
	return snapshot
}

// persist writes the original drink (if new) and the substitution in one
// transaction, retrying when a concurrent request created the drink first.
func (r *Resolver) persist(
	ctx context.Context,
	name string,
	nutrition models.NutrientSnapshot,
	candidate models.SubstituteCandidate,
) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var id int64
		err := r.repo.WithTx(ctx, func(tx repository.CatalogRepository) error {
			drink, err := findOrCreateDrink(ctx, tx, name, nutrition)
			if err != nil {
				return err
			}

			sub := &models.Substitution{
				OriginalDrinkID: drink.ID,
				SubstituteName:  candidate.Name,
				SubstituteNotes: models.String(candidate.Notes),
				SugarDelta:      candidate.SugarDelta,
				CaffeineDelta:   candidate.CaffeineDelta,
				Source:          models.SourceLLM,
			}

			// Link to the catalog when the substitute is a known drink
			substitute, err := tx.FindDrinkByName(ctx, candidate.Name)
			switch {
			case err == nil:
				sub.SubstituteDrinkID = &substitute.ID
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			if err := tx.CreateSubstitution(ctx, sub); err != nil {
				return err
			}
			id = sub.ID
			return nil
		})
		if err == nil {
			return id, nil
		}

		if !errors.Is(err, repository.ErrDuplicate) {
			return 0, fmt.Errorf("failed to store substitution: %w", err)
		}

		lastErr = err
		r.logger.Warn("Drink created concurrently, retrying",
			zap.String("drink", name),
			zap.Int("attempt", attempt))
	}

	return 0, fmt.Errorf("failed to store substitution after %d attempts: %w", maxCreateAttempts, lastErr)
}

func findOrCreateDrink(
	ctx context.Context,
	tx repository.CatalogRepository,
	name string,
	nutrition models.NutrientSnapshot,
) (*models.Drink, error) {
	drink, err := tx.FindDrinkByName(ctx, name)
	if err == nil {
		return drink, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	drink = &models.Drink{
		Name:            name,
		SugarContent:    nutrition.SugarGrams,
		CaffeineContent: nutrition.CaffeineMg,
		Source:          models.SourceLLM,
	}
	if err := tx.CreateDrink(ctx, drink); err != nil {
		return nil, err
	}
	return drink, nil
}

// Get returns a stored substitution by ID
func (r *Resolver) Get(ctx context.Context, id int64) (*models.SubstitutionView, error) {
	sub, err := r.repo.GetSubstitution(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get substitution: %w", err)
	}
	return models.NewSubstitutionView(sub), nil
}

// History returns every substitution recorded for a drink, newest first
func (r *Resolver) History(ctx context.Context, drinkName string) ([]*models.SubstitutionView, error) {
	name := strings.TrimSpace(drinkName)
	if name == "" {
		return nil, ErrInvalidDrinkName
	}

	drink, err := r.repo.FindDrinkByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up drink: %w", err)
	}

	subs, err := r.repo.ListSubstitutions(ctx, drink.ID)
	if err != nil {
		return nil, err
	}

	views := make([]*models.SubstitutionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, models.NewSubstitutionView(sub))
	}
	return views, nil
}

// GetStats returns catalog row counts
func (r *Resolver) GetStats(ctx context.Context) (*repository.CatalogStats, error) {
	return r.repo.GetStats(ctx)
}
