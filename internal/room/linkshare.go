package room

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Accept modes for link-share rooms.
const (
	AcceptLinks = "links"
	AcceptAll   = "all"
)

// Submission is one student entry in a link-share room.
type Submission struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	Content     string    `json:"content"`
	IsLink      bool      `json:"isLink"`
	Timestamp   time.Time `json:"timestamp"`
}

// LinkShare collects an ordered list of student submissions, optionally
// restricted to URLs.
type LinkShare struct {
	base
	acceptMode  string
	submissions []Submission
}

func newLinkShare(widgetID string) *LinkShare {
	return &LinkShare{
		base:       newBase(KindLinkShare, widgetID),
		acceptMode: AcceptLinks,
	}
}

// linkShareUpdate is the teacher-issued payload. Setting removeSubmissionId
// deletes one entry; acceptMode switches the validation mode.
type linkShareUpdate struct {
	AcceptMode         string `json:"acceptMode,omitempty"`
	RemoveSubmissionID string `json:"removeSubmissionId,omitempty"`
}

func (l *LinkShare) Update(data json.RawMessage) error {
	var u linkShareUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if u.AcceptMode != "" {
		if u.AcceptMode != AcceptLinks && u.AcceptMode != AcceptAll {
			return ErrInvalidAcceptMode
		}
		l.acceptMode = u.AcceptMode
	}
	if u.RemoveSubmissionID != "" {
		l.removeLocked(u.RemoveSubmissionID)
	}
	l.touchLocked()
	return nil
}

// removeLocked deletes the submission with the given id, preserving order of
// the rest. No-op when the id is unknown. Must be called with l.mu held.
func (l *LinkShare) removeLocked(id string) {
	for i, s := range l.submissions {
		if s.ID == id {
			l.submissions = append(l.submissions[:i], l.submissions[i+1:]...)
			return
		}
	}
}

// submissionData is the participant payload.
type submissionData struct {
	StudentName string `json:"studentName"`
	Content     string `json:"content"`
}

// Submit appends a submission. Returns (false, nil) when the room is
// inactive or when the entry is not a link while the room only accepts links.
func (l *LinkShare) Submit(participantID string, data json.RawMessage) (bool, error) {
	var sd submissionData
	if err := json.Unmarshal(data, &sd); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	content := strings.TrimSpace(sd.Content)
	if content == "" {
		return false, fmt.Errorf("%w: submission requires content", ErrInvalidPayload)
	}

	isLink := looksLikeLink(content)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return false, nil
	}
	if l.acceptMode == AcceptLinks && !isLink {
		return false, nil
	}

	l.submissions = append(l.submissions, Submission{
		ID:          newSubmissionID(),
		StudentName: sd.StudentName,
		Content:     content,
		IsLink:      isLink,
		Timestamp:   time.Now(),
	})
	l.touchLocked()
	return true, nil
}

// Reset drops all submissions, keeping the accept mode.
func (l *LinkShare) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions = nil
	l.touchLocked()
}

// Submissions returns a copy of the ordered submission list.
func (l *LinkShare) Submissions() []Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Submission, len(l.submissions))
	copy(out, l.submissions)
	return out
}

func (l *LinkShare) Snapshot() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := make([]Submission, len(l.submissions))
	copy(subs, l.submissions)

	snap := l.snapshotLocked()
	snap["acceptMode"] = l.acceptMode
	snap["submissions"] = subs
	snap["submissionCount"] = len(subs)
	return snap
}

// newSubmissionID builds a timestamp-ordered id with a random suffix. Not
// collision-proof by construction, but a collision would only mis-attribute
// a delete, which is acceptable here.
func newSubmissionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func looksLikeLink(content string) bool {
	if !strings.HasPrefix(content, "http://") && !strings.HasPrefix(content, "https://") {
		return false
	}
	u, err := url.Parse(content)
	return err == nil && u.Host != ""
}
