package feedback

import (
	"strings"
	"testing"

	"pronounce/internal/models"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New("en")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestAttemptMessages(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		name  string
		tier  models.Tier
		score int
		prefs []string
		want  string
	}{
		{"english excellent", models.TierExcellent, 95, nil, "Excellent! 95% match."},
		{"spanish good", models.TierGood, 70, []string{"es"}, "Buen trabajo, 70% de coincidencia."},
		{"french poor", models.TierPoor, 20, []string{"fr-FR"}, "Pas tout à fait, 20 % de correspondance. Écoute et réessaie."},
		{"accept-language header", models.TierSkipped, 0, []string{"de-DE,fr;q=0.8"}, "Passé."},
		{"unknown language falls back", models.TierFair, 45, []string{"ja"}, "Getting there, 45% match. Try once more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Attempt(tt.tier, tt.score, tt.prefs...); got != tt.want {
				t.Errorf("Attempt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultMessages(t *testing.T) {
	c := newCatalog(t)

	passed := models.FinalResult{AverageScore: 82, TotalWords: 10, PassedWords: 9, Passed: true}
	if got := c.Result(passed, 70); got != "Passed with an average of 82%. 9 of 10 words passed." {
		t.Errorf("Result(passed) = %q", got)
	}

	failed := models.FinalResult{AverageScore: 40, TotalWords: 1, PassedWords: 0}
	got := c.Result(failed, 75, "es")
	if !strings.HasPrefix(got, "Media de 40%, se necesita 75%") || !strings.HasSuffix(got, "0 de 1 palabra superada.") {
		t.Errorf("Result(failed, es) = %q", got)
	}
}

func TestLanguages(t *testing.T) {
	c := newCatalog(t)
	langs := strings.Join(c.Languages(), ",")
	for _, want := range []string{"en", "es", "fr"} {
		if !strings.Contains(langs, want) {
			t.Errorf("Languages() = %s, missing %s", langs, want)
		}
	}
}

func TestNewRejectsBadLanguage(t *testing.T) {
	if _, err := New("not a tag!"); err == nil {
		t.Error("expected error for invalid default language")
	}
}
