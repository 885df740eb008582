package room

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeedbackComment is one free-text remark attached to a rating.
type FeedbackComment struct {
	StudentName string    `json:"studentName"`
	Comment     string    `json:"comment"`
	Timestamp   time.Time `json:"timestamp"`
}

// Feedback lets each participant rate the lesson 1-5 with an optional
// comment. Re-submitting replaces the participant's previous rating, so the
// distribution always holds at most one entry per participant.
type Feedback struct {
	base
	ratings  map[string]int // participantID -> rating 1..5
	comments []FeedbackComment
}

func newFeedback(widgetID string) *Feedback {
	return &Feedback{
		base:    newBase(KindFeedback, widgetID),
		ratings: make(map[string]int),
	}
}

// Update is a no-op for feedback rooms; they carry no teacher configuration.
func (f *Feedback) Update(data json.RawMessage) error {
	return nil
}

type feedbackData struct {
	Rating      *int   `json:"rating"`
	StudentName string `json:"studentName"`
	Comment     string `json:"comment"`
}

// Submit records or replaces the participant's rating. Returns (false, nil)
// when the room is inactive.
func (f *Feedback) Submit(participantID string, data json.RawMessage) (bool, error) {
	var fd feedbackData
	if err := json.Unmarshal(data, &fd); err != nil || fd.Rating == nil {
		return false, fmt.Errorf("%w: feedback requires rating", ErrInvalidPayload)
	}
	if *fd.Rating < 1 || *fd.Rating > 5 {
		return false, fmt.Errorf("%w: rating must be 1-5", ErrInvalidPayload)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return false, nil
	}

	f.ratings[participantID] = *fd.Rating
	if fd.Comment != "" {
		f.comments = append(f.comments, FeedbackComment{
			StudentName: fd.StudentName,
			Comment:     fd.Comment,
			Timestamp:   time.Now(),
		})
	}
	f.touchLocked()
	return true, nil
}

// Reset clears all ratings and comments.
func (f *Feedback) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings = make(map[string]int)
	f.comments = nil
	f.touchLocked()
}

func (f *Feedback) Snapshot() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	distribution := make([]int, 5) // index 0 holds rating 1
	sum := 0
	for _, r := range f.ratings {
		distribution[r-1]++
		sum += r
	}
	average := 0.0
	if len(f.ratings) > 0 {
		average = float64(sum) / float64(len(f.ratings))
	}
	comments := make([]FeedbackComment, len(f.comments))
	copy(comments, f.comments)

	snap := f.snapshotLocked()
	snap["distribution"] = distribution
	snap["average"] = average
	snap["responseCount"] = len(f.ratings)
	snap["comments"] = comments
	return snap
}
