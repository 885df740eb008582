package room

import (
	"encoding/json"
	"fmt"
)

// Poll is a single-question multiple-choice poll. Vote counts and the voter
// set are mutated under one lock so the tally can always be re-derived from
// the voter map: sum(votes) == len(voters) at every point in time.
type Poll struct {
	base
	question string
	options  []string
	votes    []int
	voters   map[string]int // participantID -> chosen option index
}

func newPoll(widgetID string) *Poll {
	return &Poll{
		base:   newBase(KindPoll, widgetID),
		voters: make(map[string]int),
	}
}

// PollData is the teacher-issued configuration payload.
type PollData struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Update replaces the question and options. Votes are reset only when the
// option list actually changed by value; re-saving identical options keeps
// counts so a superficial edit does not wipe live results. Reordering counts
// as a change because option index is what votes refer to.
func (p *Poll) Update(data json.RawMessage) error {
	var pd PollData
	if err := json.Unmarshal(data, &pd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(pd.Options) < 2 {
		return ErrEmptyOptions
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !equalOptions(p.options, pd.Options) {
		p.votes = make([]int, len(pd.Options))
		p.voters = make(map[string]int)
	}
	p.question = pd.Question
	p.options = pd.Options
	p.touchLocked()
	return nil
}

// voteData is the participant submission payload.
type voteData struct {
	OptionIndex *int `json:"optionIndex"`
}

// Submit records one vote. Returns (false, nil) when the poll is inactive,
// the participant already voted, or the index is out of range.
func (p *Poll) Submit(participantID string, data json.RawMessage) (bool, error) {
	var v voteData
	if err := json.Unmarshal(data, &v); err != nil || v.OptionIndex == nil {
		return false, fmt.Errorf("%w: vote requires optionIndex", ErrInvalidPayload)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return false, nil
	}
	if _, voted := p.voters[participantID]; voted {
		return false, nil
	}
	idx := *v.OptionIndex
	if idx < 0 || idx >= len(p.options) {
		return false, nil
	}

	// Count and voter registration are applied together under the lock.
	p.votes[idx]++
	p.voters[participantID] = idx
	p.touchLocked()
	return true, nil
}

// Reset zeroes all counts and clears the voter set, keeping the question and
// options in place.
func (p *Poll) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = make([]int, len(p.options))
	p.voters = make(map[string]int)
	p.touchLocked()
}

// HasVoted reports whether the participant already cast a vote. Used to
// restore "already voted" state for reconnecting clients.
func (p *Poll) HasVoted(participantID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.voters[participantID]
	return ok
}

// Results returns a copy of the per-option tallies and the total vote count.
func (p *Poll) Results() ([]int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resultsLocked()
}

func (p *Poll) resultsLocked() ([]int, int) {
	votes := make([]int, len(p.votes))
	copy(votes, p.votes)
	total := 0
	for _, n := range votes {
		total += n
	}
	return votes, total
}

// Snapshot returns the full poll state for initial-state replies and resync.
func (p *Poll) Snapshot() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	votes, total := p.resultsLocked()
	options := make([]string, len(p.options))
	copy(options, p.options)

	snap := p.snapshotLocked()
	snap["question"] = p.question
	snap["options"] = options
	snap["votes"] = votes
	snap["totalVotes"] = total
	return snap
}

func equalOptions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
