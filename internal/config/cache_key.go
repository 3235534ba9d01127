package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// AttemptAnswersKey returns the cache key for a user's in-progress answers
func (r *CacheKeyStruct) AttemptAnswersKey(userID, examID string) string {
	return fmt.Sprintf("user:%s:exam:%s:answers", userID, examID)
}

// AttemptInteractedKey returns the cache key for the set of ordering
// questions the user has actually dragged
func (r *CacheKeyStruct) AttemptInteractedKey(userID, examID string) string {
	return fmt.Sprintf("user:%s:exam:%s:interacted", userID, examID)
}

// AttemptDeadlineKey returns the cache key for an attempt's deadline
func (r *CacheKeyStruct) AttemptDeadlineKey(userID, examID string) string {
	return fmt.Sprintf("user:%s:exam:%s:deadline", userID, examID)
}

// ExamPaperKey returns the cache key for an exam's student-facing paper
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

var CacheKey = NewCacheKeyStruct()
