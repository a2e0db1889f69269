// Package seed loads curated drink substitutions from CSV into the catalog.
//
// Expected columns (header row required, order free):
//
//	original_item, substitute_item, category, flavor_profile,
//	nutrition_info, sub_nutrition_info, source
//
// nutrition_info values look like "sugar_grams=38;caffeine_mg=60".
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sweetswap/internal/models"
	"sweetswap/internal/repository"

	"go.uber.org/zap"
)

// Result summarizes one load
type Result struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Loader writes seed rows into the catalog
type Loader struct {
	repo   repository.CatalogRepository
	logger *zap.Logger
}

// NewLoader creates a seed loader
func NewLoader(repo repository.CatalogRepository, logger *zap.Logger) *Loader {
	return &Loader{repo: repo, logger: logger}
}

type row struct {
	original      string
	substitute    string
	category      string
	flavorProfile string
	source        models.Source

	originalNutrients   models.NutrientSnapshot
	substituteNutrients models.NutrientSnapshot
}

// Load reads CSV from r and inserts every new substitution in one
// transaction. Pairs already in the catalog are skipped.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = l.repo.WithTx(ctx, func(tx repository.CatalogRepository) error {
		for _, rw := range rows {
			added, err := loadRow(ctx, tx, rw)
			if err != nil {
				return fmt.Errorf("failed to load %q -> %q: %w", rw.original, rw.substitute, err)
			}
			if added {
				result.Loaded++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Seed data loaded",
		zap.Int("loaded", result.Loaded),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

func loadRow(ctx context.Context, tx repository.CatalogRepository, rw row) (bool, error) {
	original, err := getOrCreateDrink(ctx, tx, rw.original, rw, rw.originalNutrients)
	if err != nil {
		return false, err
	}

	substitute, err := getOrCreateDrink(ctx, tx, rw.substitute, rw, rw.substituteNutrients)
	if err != nil {
		return false, err
	}

	_, err = tx.FindSubstitutionByName(ctx, original.ID, rw.substitute)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	flavor := rw.flavorProfile
	if flavor == "" {
		flavor = "N/A"
	}

	sub := &models.Substitution{
		OriginalDrinkID:   original.ID,
		SubstituteDrinkID: &substitute.ID,
		SubstituteName:    rw.substitute,
		SubstituteNotes:   models.String("Flavor: " + flavor),
		SugarDelta:        models.Delta(rw.originalNutrients.SugarGrams, rw.substituteNutrients.SugarGrams),
		CaffeineDelta:     models.Delta(rw.originalNutrients.CaffeineMg, rw.substituteNutrients.CaffeineMg),
		Source:            rw.source,
	}
	if err := tx.CreateSubstitution(ctx, sub); err != nil {
		return false, err
	}
	return true, nil
}

func getOrCreateDrink(ctx context.Context, tx repository.CatalogRepository, name string, rw row, n models.NutrientSnapshot) (*models.Drink, error) {
	drink, err := tx.FindDrinkByName(ctx, name)
	if err == nil {
		return drink, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	drink = &models.Drink{
		Name:            name,
		Category:        models.String(rw.category),
		SugarContent:    n.SugarGrams,
		CaffeineContent: n.CaffeineMg,
		FlavorProfile:   models.String(rw.flavorProfile),
		Source:          rw.source,
	}
	if err := tx.CreateDrink(ctx, drink); err != nil {
		return nil, err
	}
	return drink, nil
}

func readRows(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"original_item", "substitute_item"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV is missing column %q", required)
		}
	}

	get := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		rw := row{
			original:      get(record, "original_item"),
			substitute:    get(record, "substitute_item"),
			category:      get(record, "category"),
			flavorProfile: get(record, "flavor_profile"),
			source:        models.Source(get(record, "source")),

			originalNutrients:   ParseNutrition(get(record, "nutrition_info")),
			substituteNutrients: ParseNutrition(get(record, "sub_nutrition_info")),
		}
		if rw.original == "" || rw.substitute == "" {
			continue
		}
		if rw.source == "" {
			rw.source = models.SourceManual
		}
		rows = append(rows, rw)
	}

	return rows, nil
}

// ParseNutrition parses "sugar_grams=38;caffeine_mg=60". Unknown keys and
// malformed numbers are ignored.
func ParseNutrition(s string) models.NutrientSnapshot {
	var n models.NutrientSnapshot
	for _, part := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "sugar_grams":
			n.SugarGrams = &v
		case "caffeine_mg":
			n.CaffeineMg = &v
		}
	}
	return n
}
