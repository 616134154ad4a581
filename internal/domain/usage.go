package domain

import (
	"errors"
	"time"
)

// FeatureSentenceGeneration tags usage log entries written by the AI sentence workflow.
const FeatureSentenceGeneration = "sentence-generation"

type UsageStatus string

const (
	UsageSuccess UsageStatus = "SUCCESS"
	UsageFailure UsageStatus = "FAILURE"
)

// UsageLogEntry records one AI generation attempt. ID and CreatedAt are
// assigned by the store on insert.
type UsageLogEntry struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	FeatureName       string      `json:"featureName"`
	TargetWordIDs     []int64     `json:"targetWordIds"`
	GeneratedSentence *string     `json:"generatedSentence"`
	Status            UsageStatus `json:"status"`
	ErrorMessage      *string     `json:"errorMessage"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// NewSuccessEntry builds the entry for a completed generation.
func NewSuccessEntry(userID, feature string, wordIDs []int64, sentence string) UsageLogEntry {
	return UsageLogEntry{
		UserID:            userID,
		FeatureName:       feature,
		TargetWordIDs:     wordIDs,
		GeneratedSentence: &sentence,
		Status:            UsageSuccess,
	}
}

// NewFailureEntry builds the entry for a failed generation.
func NewFailureEntry(userID, feature string, wordIDs []int64, message string) UsageLogEntry {
	return UsageLogEntry{
		UserID:        userID,
		FeatureName:   feature,
		TargetWordIDs: wordIDs,
		Status:        UsageFailure,
		ErrorMessage:  &message,
	}
}

// Validate checks the fields a store needs before insert. Exactly one of
// GeneratedSentence and ErrorMessage is set, matching Status.
func (e UsageLogEntry) Validate() error {
	if e.UserID == "" {
		return errors.New("domain: usage log entry requires a user id")
	}
	if e.FeatureName == "" {
		return errors.New("domain: usage log entry requires a feature name")
	}
	switch e.Status {
	case UsageSuccess:
		if e.GeneratedSentence == nil || e.ErrorMessage != nil {
			return errors.New("domain: SUCCESS entry must carry a sentence and no error message")
		}
	case UsageFailure:
		if e.ErrorMessage == nil || e.GeneratedSentence != nil {
			return errors.New("domain: FAILURE entry must carry an error message and no sentence")
		}
	default:
		return errors.New("domain: unknown usage status " + string(e.Status))
	}
	return nil
}

// UsageQuery filters usage log listings. Zero values leave a bound open.
// Results are always newest first.
type UsageQuery struct {
	Status UsageStatus
	From   time.Time // inclusive
	To     time.Time // exclusive
	Limit  int
}
