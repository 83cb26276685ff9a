// Package feedback renders localized messages for scored attempts and final
// results.
package feedback

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"pronounce/internal/models"
)

//go:embed locales/*.json
var localeFS embed.FS

var tierMessages = map[models.Tier]string{
	models.TierExcellent: "TierExcellent",
	models.TierGood:      "TierGood",
	models.TierFair:      "TierFair",
	models.TierPoor:      "TierPoor",
	models.TierSkipped:   "TierSkipped",
}

// Catalog holds the translation bundle
type Catalog struct {
	bundle      *i18n.Bundle
	defaultLang string
}

// New loads the embedded locales. defaultLang is used when a caller's
// preferred languages have no translation.
func New(defaultLang string) (*Catalog, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}

	return &Catalog{bundle: bundle, defaultLang: tag.String()}, nil
}

// Languages lists the loaded locales
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	langs := make([]string, len(tags))
	for i, t := range tags {
		langs[i] = t.String()
	}
	return langs
}

// Attempt describes a scored attempt. prefs are language tags or
// Accept-Language values in order of preference.
func (c *Catalog) Attempt(tier models.Tier, score int, prefs ...string) string {
	id, ok := tierMessages[tier]
	if !ok {
		return string(tier)
	}
	return c.localize(prefs, &i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: map[string]any{"Score": score},
	})
}

// Result summarises a final result in one or two sentences
func (c *Catalog) Result(result models.FinalResult, passingScore int, prefs ...string) string {
	var headline string
	if result.Passed {
		headline = c.localize(prefs, &i18n.LocalizeConfig{
			MessageID:    "ResultPassed",
			TemplateData: map[string]any{"Score": result.AverageScore},
		})
	} else {
		headline = c.localize(prefs, &i18n.LocalizeConfig{
			MessageID:    "ResultFailed",
			TemplateData: map[string]any{"Score": result.AverageScore, "Required": passingScore},
		})
	}

	words := c.localize(prefs, &i18n.LocalizeConfig{
		MessageID:    "WordsPassed",
		PluralCount:  result.TotalWords,
		TemplateData: map[string]any{"Passed": result.PassedWords, "Count": result.TotalWords},
	})
	return headline + " " + words
}

func (c *Catalog) localize(prefs []string, cfg *i18n.LocalizeConfig) string {
	langs := append(append([]string{}, prefs...), c.defaultLang)
	s, err := i18n.NewLocalizer(c.bundle, langs...).Localize(cfg)
	if err != nil {
		log.Printf("Warning: missing translation %s: %v", cfg.MessageID, err)
		return cfg.MessageID
	}
	return s
}
