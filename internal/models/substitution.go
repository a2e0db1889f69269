package models

import "time"

// UnknownDrinkName is shown when a substitution has lost its original drink
const UnknownDrinkName = "Unknown"

// Substitution is one proposed replacement for an original drink.
// Rows are append-only; there is no update path.
type Substitution struct {
	ID                int64     `json:"id" db:"id"`
	OriginalDrinkID   int64     `json:"original_drink_id" db:"original_drink_id"`
	SubstituteDrinkID *int64    `json:"substitute_drink_id,omitempty" db:"substitute_drink_id"` // Set when the substitute is catalogued
	SubstituteName    string    `json:"substitute_name" db:"substitute_name"`
	SubstituteNotes   *string   `json:"substitute_notes,omitempty" db:"substitute_notes"`
	SugarDelta        *float64  `json:"sugar_delta" db:"sugar_delta"`       // grams, substitute - original
	CaffeineDelta     *float64  `json:"caffeine_delta" db:"caffeine_delta"` // mg, substitute - original
	Source            Source    `json:"source" db:"source"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`

	// Joined from drinks; nil if the original drink row is missing
	OriginalDrinkName *string `json:"-" db:"original_drink_name"`
}

// SubstituteCandidate is what a generator proposes for a drink
type SubstituteCandidate struct {
	Name          string   `json:"name"`
	Notes         string   `json:"notes"`
	SugarDelta    *float64 `json:"sugar_delta"`
	CaffeineDelta *float64 `json:"caffeine_delta"`
}

// SubstitutionView is the shape returned to API callers
type SubstitutionView struct {
	ID                int64     `json:"id"`
	SubstituteName    string    `json:"substitute_name"`
	SubstituteNotes   *string   `json:"substitute_notes"`
	OriginalDrinkName string    `json:"original_drink_name"`
	SugarDelta        *float64  `json:"sugar_delta"`
	CaffeineDelta     *float64  `json:"caffeine_delta"`
	Source            Source    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewSubstitutionView flattens a stored substitution for output
func NewSubstitutionView(s *Substitution) *SubstitutionView {
	original := UnknownDrinkName
	if s.OriginalDrinkName != nil {
		original = *s.OriginalDrinkName
	}

	return &SubstitutionView{
		ID:                s.ID,
		SubstituteName:    s.SubstituteName,
		SubstituteNotes:   s.SubstituteNotes,
		OriginalDrinkName: original,
		SugarDelta:        s.SugarDelta,
		CaffeineDelta:     s.CaffeineDelta,
		Source:            s.Source,
		CreatedAt:         s.CreatedAt,
	}
}

// SubstituteRequest for POST /substitute
type SubstituteRequest struct {
	DrinkName        string `json:"drink_name" binding:"required"`
	IncludeNutrition *bool  `json:"include_nutrition,omitempty"` // Defaults to true
}

// WantsNutrition applies the include_nutrition default
func (r SubstituteRequest) WantsNutrition() bool {
	return r.IncludeNutrition == nil || *r.IncludeNutrition
}
