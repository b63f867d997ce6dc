package usage

import (
	"math"
	"strings"
	"testing"

	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/models"
)

func testCalculator() *Calculator {
	return NewCalculator(config.PricingConfig{
		Models: map[string]config.ModelPricing{
			"gpt-4o":      {InputPer1K: 0.005, OutputPer1K: 0.015},
			"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		},
		PricePerImage:       0.04,
		PricePerAudioMinute: 0.006,
	})
}

func closeEnough(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTokenCost(t *testing.T) {
	c := testCalculator()
	if got := c.TokenCost("gpt-4o", 1000, 1000); !closeEnough(got, 0.02) {
		t.Errorf("TokenCost = %f, want 0.02", got)
	}
	if got := c.TokenCost("unknown-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model should be free, got %f", got)
	}
}

func TestAudioCost(t *testing.T) {
	c := testCalculator()
	if got := c.AudioCost(90); !closeEnough(got, 0.009) {
		t.Errorf("AudioCost(90s) = %f, want 0.009", got)
	}
}

func TestTotal(t *testing.T) {
	c := testCalculator()
	rows := []models.ModelUsage{
		{Model: "gpt-4o", InputTokens: 1000, OutputTokens: 1000},
		{Model: "gpt-4o-mini", InputTokens: 2000, OutputTokens: 0},
	}
	want := 0.02 + 0.0003 + 2*0.04 + 0.006
	if got := c.Total(rows, 2, 60); !closeEnough(got, want) {
		t.Errorf("Total = %f, want %f", got, want)
	}
}

func TestReportContents(t *testing.T) {
	c := testCalculator()
	rows := []models.ModelUsage{
		{Model: "gpt-4o", InputTokens: 100, OutputTokens: 50},
	}
	report := c.Report("en", rows, 1, 30)
	for _, want := range []string{"gpt-4o", "150 tokens used", "1 images generated", "30 seconds transcribed"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestReportOmitsZeroLines(t *testing.T) {
	c := testCalculator()
	report := c.Report("en", nil, 0, 0)
	if strings.Contains(report, "images") || strings.Contains(report, "transcribed") {
		t.Errorf("zero counters should be omitted:\n%s", report)
	}
}
