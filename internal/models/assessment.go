package models

import "time"

// Level is the difficulty band of an assessment
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// AssessmentDefinition describes one configured pronunciation test
type AssessmentDefinition struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Language     string `json:"language"`
	Level        Level  `json:"level"`
	WordCount    int    `json:"word_count"`
	TimeLimitSec int    `json:"time_limit_seconds"`
	PassingScore int    `json:"passing_score"`
	Prerequisite string `json:"prerequisite,omitempty"` // Empty when always unlocked
}

// HasPrerequisite reports whether another assessment must be completed first
func (a AssessmentDefinition) HasPrerequisite() bool {
	return a.Prerequisite != ""
}

// TimeLimit is the time budget for the whole assessment
func (a AssessmentDefinition) TimeLimit() time.Duration {
	return time.Duration(a.TimeLimitSec) * time.Second
}

// WordItem is a word or phrase the learner is asked to pronounce.
// IDs are only unique within a (language, level) pool.
type WordItem struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Phonetic string `json:"phonetic,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// AssessmentSummary pairs a definition with the caller's unlock state
type AssessmentSummary struct {
	AssessmentDefinition
	Unlocked  bool `json:"unlocked"`
	Completed bool `json:"completed"`
}
