package room

import (
	"encoding/json"
	"fmt"
	"testing"
)

func mustLinkShare(t *testing.T) *LinkShare {
	t.Helper()
	r, err := New(KindLinkShare, "")
	if err != nil {
		t.Fatalf("New(linkshare) failed: %v", err)
	}
	return r.(*LinkShare)
}

func submitEntry(t *testing.T, l *LinkShare, name, content string) bool {
	t.Helper()
	data, _ := json.Marshal(map[string]string{"studentName": name, "content": content})
	ok, err := l.Submit(name, data)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	return ok
}

func TestLinkShare_DefaultsToLinksOnly(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()

	if submitEntry(t, l, "ana", "just some text") {
		t.Error("non-link should be rejected in links mode")
	}
	if !submitEntry(t, l, "ana", "https://example.com/worksheet") {
		t.Error("link should be accepted in links mode")
	}
	subs := l.Submissions()
	if len(subs) != 1 || !subs[0].IsLink {
		t.Errorf("expected one link submission, got %+v", subs)
	}
}

func TestLinkShare_AcceptAllMode(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()

	if err := l.Update(json.RawMessage(`{"acceptMode":"all"}`)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !submitEntry(t, l, "ben", "my answer is 42") {
		t.Error("plain text should be accepted in all mode")
	}
	subs := l.Submissions()
	if len(subs) != 1 || subs[0].IsLink {
		t.Errorf("expected one non-link submission, got %+v", subs)
	}
}

func TestLinkShare_InvalidAcceptMode(t *testing.T) {
	l := mustLinkShare(t)
	if err := l.Update(json.RawMessage(`{"acceptMode":"bogus"}`)); err != ErrInvalidAcceptMode {
		t.Errorf("expected ErrInvalidAcceptMode, got %v", err)
	}
}

func TestLinkShare_RejectsWhileInactive(t *testing.T) {
	l := mustLinkShare(t)
	if submitEntry(t, l, "ana", "https://example.com") {
		t.Error("submission on inactive room should be rejected")
	}
}

func TestLinkShare_EmptyContentIsValidationError(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()
	if _, err := l.Submit("ana", json.RawMessage(`{"studentName":"ana","content":"  "}`)); err == nil {
		t.Error("blank content should return a validation error")
	}
}

func TestLinkShare_OrderAndUniqueIDs(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()

	for i := 0; i < 5; i++ {
		if !submitEntry(t, l, fmt.Sprintf("s%d", i), fmt.Sprintf("https://example.com/%d", i)) {
			t.Fatalf("submission %d should succeed", i)
		}
	}

	subs := l.Submissions()
	if len(subs) != 5 {
		t.Fatalf("expected 5 submissions, got %d", len(subs))
	}
	seen := make(map[string]bool)
	for i, s := range subs {
		if s.Content != fmt.Sprintf("https://example.com/%d", i) {
			t.Errorf("submission %d out of order: %s", i, s.Content)
		}
		if seen[s.ID] {
			t.Errorf("duplicate submission id %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestLinkShare_RemoveSubmission(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()
	submitEntry(t, l, "ana", "https://example.com/a")
	submitEntry(t, l, "ben", "https://example.com/b")

	id := l.Submissions()[0].ID
	update, _ := json.Marshal(map[string]string{"removeSubmissionId": id})
	if err := l.Update(update); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	subs := l.Submissions()
	if len(subs) != 1 || subs[0].StudentName != "ben" {
		t.Errorf("expected ben's submission to remain, got %+v", subs)
	}

	// Removing an unknown id is a no-op.
	if err := l.Update(json.RawMessage(`{"removeSubmissionId":"missing"}`)); err != nil {
		t.Errorf("removing unknown id should not fail: %v", err)
	}
	if len(l.Submissions()) != 1 {
		t.Error("unknown-id removal must not change the list")
	}
}

func TestLinkShare_ResetClearsSubmissionsKeepsMode(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()
	l.Update(json.RawMessage(`{"acceptMode":"all"}`))
	submitEntry(t, l, "ana", "plain text")

	l.Reset()

	if len(l.Submissions()) != 0 {
		t.Error("reset should drop all submissions")
	}
	if !submitEntry(t, l, "ben", "still plain text") {
		t.Error("accept mode should survive a reset")
	}
}

func TestLinkShare_Snapshot(t *testing.T) {
	l := mustLinkShare(t)
	l.Start()
	submitEntry(t, l, "ana", "https://example.com/a")

	snap := l.Snapshot()
	if snap["acceptMode"] != AcceptLinks {
		t.Errorf("snapshot acceptMode = %v", snap["acceptMode"])
	}
	if snap["submissionCount"] != 1 {
		t.Errorf("snapshot submissionCount = %v", snap["submissionCount"])
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("snapshot not serializable: %v", err)
	}
}

func TestLooksLikeLink(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"https://example.com", true},
		{"http://example.com/page?q=1", true},
		{"example.com", false},
		{"ftp://example.com", false},
		{"https://", false},
		{"not a url at all", false},
	}
	for _, c := range cases {
		if got := looksLikeLink(c.content); got != c.want {
			t.Errorf("looksLikeLink(%q) = %v, want %v", c.content, got, c.want)
		}
	}
}
