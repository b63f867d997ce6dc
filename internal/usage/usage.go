// Package usage computes billing totals from the additive per-model
// counters and formats the balance report shown to users.
package usage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/text"
)

// Calculator prices token, image, and audio usage from the configured
// rates. Models without a configured rate are priced at zero.
type Calculator struct {
	pricing config.PricingConfig
}

func NewCalculator(pricing config.PricingConfig) *Calculator {
	return &Calculator{pricing: pricing}
}

// TokenCost prices a single model's accumulated token counters.
func (c *Calculator) TokenCost(model string, inputTokens, outputTokens int64) float64 {
	rate, ok := c.pricing.Models[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*rate.InputPer1K + float64(outputTokens)/1000*rate.OutputPer1K
}

// ImageCost prices generated images.
func (c *Calculator) ImageCost(n int64) float64 {
	return float64(n) * c.pricing.PricePerImage
}

// AudioCost prices transcribed audio seconds.
func (c *Calculator) AudioCost(seconds float64) float64 {
	return seconds / 60 * c.pricing.PricePerAudioMinute
}

// Total sums the cost of everything the user has consumed.
func (c *Calculator) Total(rows []models.ModelUsage, images int64, seconds float64) float64 {
	total := c.ImageCost(images) + c.AudioCost(seconds)
	for _, row := range rows {
		total += c.TokenCost(row.Model, row.InputTokens, row.OutputTokens)
	}
	return total
}

// Report renders the localized balance breakdown for one user.
func (c *Calculator) Report(lang string, rows []models.ModelUsage, images int64, seconds float64) string {
	sorted := make([]models.ModelUsage, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Model < sorted[j].Model })

	var b strings.Builder
	fmt.Fprintf(&b, "💰 %s $%.3f\n", text.YouSpent(lang), c.Total(rows, images, seconds))
	for _, row := range sorted {
		cost := c.TokenCost(row.Model, row.InputTokens, row.OutputTokens)
		fmt.Fprintf(&b, "- %s: $%.3f (%s)\n",
			row.Model, cost, text.TokensUsed(lang, row.InputTokens+row.OutputTokens))
	}
	if images > 0 {
		fmt.Fprintf(&b, "- $%.3f (%s)\n", c.ImageCost(images), text.ImagesGenerated(lang, images))
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "- $%.3f (%s)\n", c.AudioCost(seconds), text.AudioTranscribed(lang, seconds))
	}
	return strings.TrimRight(b.String(), "\n")
}
