package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sweetswap/internal/models"
	"sweetswap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCSV = "\ufefforiginal_item,substitute_item,category,flavor_profile,nutrition_info,sub_nutrition_info,source\n" +
	"Mango Boba Tea,Mango Green Tea with Stevia,boba,fruity,sugar_grams=38;caffeine_mg=30,sugar_grams=4;caffeine_mg=30,manual\n" +
	"Thai Iced Tea,Thai Tea with Monk Fruit,tea,,sugar_grams=40,,\n" +
	",Orphan Substitute,tea,,,,\n"

func newTestRepo(t *testing.T) repository.CatalogRepository {
	t.Helper()

	db, err := repository.NewDB(repository.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := repository.NewCatalogRepository(db, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func TestLoad_InsertsRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result, err := NewLoader(repo, zap.NewNop()).Load(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 0, result.Skipped)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Drinks)
	assert.Equal(t, 2, stats.Substitutions)

	mango, err := repo.FindDrinkByName(ctx, "mango boba tea")
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, mango.Source)
	require.NotNil(t, mango.Category)
	assert.Equal(t, "boba", *mango.Category)

	sub, err := repo.FindLatestSubstitution(ctx, mango.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mango Green Tea with Stevia", sub.SubstituteName)
	require.NotNil(t, sub.SubstituteDrinkID)
	require.NotNil(t, sub.SubstituteNotes)
	assert.Equal(t, "Flavor: fruity", *sub.SubstituteNotes)
	require.NotNil(t, sub.SugarDelta)
	assert.Equal(t, -34.0, *sub.SugarDelta)
	require.NotNil(t, sub.CaffeineDelta)
	assert.Equal(t, 0.0, *sub.CaffeineDelta)
}

func TestLoad_MissingNutritionLeavesDeltasNull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := NewLoader(repo, zap.NewNop()).Load(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	thai, err := repo.FindDrinkByName(ctx, "Thai Iced Tea")
	require.NoError(t, err)
	assert.Nil(t, thai.FlavorProfile)

	sub, err := repo.FindLatestSubstitution(ctx, thai.ID)
	require.NoError(t, err)
	assert.Nil(t, sub.SugarDelta)
	assert.Nil(t, sub.CaffeineDelta)
	assert.Equal(t, models.SourceManual, sub.Source)
	require.NotNil(t, sub.SubstituteNotes)
	assert.Equal(t, "Flavor: N/A", *sub.SubstituteNotes)
}

func TestLoad_ReloadSkipsExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	loader := NewLoader(repo, zap.NewNop())

	_, err := loader.Load(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	result, err := loader.Load(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Loaded)
	assert.Equal(t, 2, result.Skipped)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Substitutions)
}

func TestLoad_BundledDataset(t *testing.T) {
	file, err := os.Open(filepath.Join("..", "..", "data", "seed_substitutions.csv"))
	require.NoError(t, err)
	defer file.Close()

	result, err := NewLoader(newTestRepo(t), zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Loaded)
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	_, err := NewLoader(newTestRepo(t), zap.NewNop()).Load(context.Background(),
		strings.NewReader("original_item,category\nMatcha Latte,tea\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "substitute_item")
}

func TestParseNutrition(t *testing.T) {
	n := ParseNutrition("sugar_grams=38; caffeine_mg = 60")
	require.NotNil(t, n.SugarGrams)
	assert.Equal(t, 38.0, *n.SugarGrams)
	require.NotNil(t, n.CaffeineMg)
	assert.Equal(t, 60.0, *n.CaffeineMg)

	n = ParseNutrition("sugar_grams=lots;fat_g=3;caffeine_mg")
	assert.False(t, n.HasValues())

	assert.False(t, ParseNutrition("").HasValues())
}
