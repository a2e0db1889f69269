package generator

import (
	"fmt"
	"strconv"
	"strings"

	"sweetswap/internal/models"
)

// SystemInstruction frames every generation request
const SystemInstruction = `You are a nutrition assistant helping people with diabetes find healthier drink alternatives.
Always answer with a single JSON object and nothing else.`

// BuildPrompt renders the substitution request for one drink
func BuildPrompt(drinkName string, nutrition models.NutrientSnapshot) string {
	var context strings.Builder
	if nutrition.SugarGrams != nil {
		fmt.Fprintf(&context, "\n- Current sugar content: %sg per serving", formatAmount(*nutrition.SugarGrams))
	}
	if nutrition.CaffeineMg != nil {
		fmt.Fprintf(&context, "\n- Current caffeine content: %smg per serving", formatAmount(*nutrition.CaffeineMg))
	}

	return fmt.Sprintf(`Original drink: %[1]s
%[2]s

Suggest a diabetes-friendly substitute that:
1. Has significantly lower sugar content (aim for <10g sugar or sugar-free)
2. Keeps a similar flavor profile when possible
3. Uses natural sweeteners (stevia, monk fruit) or unsweetened bases
4. Is realistic to order at a cafe or easy to make at home

Respond in JSON with exactly these fields:
{
    "name": "Substitute drink name",
    "notes": "Why this is a good substitute and how to order or make it",
    "sugar_delta": estimated sugar change in grams (negative number),
    "caffeine_delta": estimated caffeine change in mg (0 if similar)
}

Example:
{
    "name": "Mango Green Tea with Stevia",
    "notes": "Same fruity flavor with 80%% less sugar. Ask for a green tea base with sugar-free mango syrup and stevia.",
    "sugar_delta": -30.0,
    "caffeine_delta": -20.0
}

Now provide the substitution for %[1]q:`, drinkName, context.String())
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
