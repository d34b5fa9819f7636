package models

import "time"

// ReadingSession is one contiguous timed reading interval for one book
type ReadingSession struct {
	ID        string     `json:"id"`
	BookID    string     `json:"book_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"` // nil while active
	Duration  int64      `json:"duration"`           // seconds
}
