package models

// Source tags where a record came from
type Source string

const (
	SourceSeed   Source = "seed"   // Loaded from the curated CSV dataset
	SourceManual Source = "manual" // Hand-curated entry
	SourceLLM    Source = "llm"    // Produced by a text-generation provider
)

// Drink is a catalogued beverage. Names are unique ignoring case.
type Drink struct {
	ID              int64    `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	Category        *string  `json:"category,omitempty" db:"category"`
	Ingredients     *string  `json:"ingredients,omitempty" db:"ingredients"`
	SugarContent    *float64 `json:"sugar_content,omitempty" db:"sugar_content"`       // grams per serving
	CaffeineContent *float64 `json:"caffeine_content,omitempty" db:"caffeine_content"` // mg per serving
	FlavorProfile   *string  `json:"flavor_profile,omitempty" db:"flavor_profile"`
	Source          Source   `json:"source" db:"source"`
}

// NutrientSnapshot is a partial sugar/caffeine record for a named food
type NutrientSnapshot struct {
	SugarGrams *float64 `json:"sugar_grams,omitempty"`
	CaffeineMg *float64 `json:"caffeine_mg,omitempty"`
	DataSource string   `json:"data_source,omitempty"` // "usda"
}

// HasValues reports whether at least one nutrient value is known
func (n NutrientSnapshot) HasValues() bool {
	return n.SugarGrams != nil || n.CaffeineMg != nil
}

// Delta returns substitute - original, or nil unless both values are known.
func Delta(original, substitute *float64) *float64 {
	if original == nil || substitute == nil {
		return nil
	}
	d := *substitute - *original
	return &d
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, or nil for the empty string
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
