package gateway

import "testing"

func TestFrameLimiterAllowsUpToLimit(t *testing.T) {
	l := newFrameLimiter()
	for i := 0; i < frameLimitPerWindow; i++ {
		if !l.allow("s1") {
			t.Fatalf("frame %d rejected inside the window", i)
		}
	}
	if l.allow("s1") {
		t.Error("frame beyond the limit was allowed")
	}
}

func TestFrameLimiterIsPerSocket(t *testing.T) {
	l := newFrameLimiter()
	for i := 0; i < frameLimitPerWindow; i++ {
		l.allow("s1")
	}
	if !l.allow("s2") {
		t.Error("unrelated socket throttled")
	}
}

func TestFrameLimiterForgetResets(t *testing.T) {
	l := newFrameLimiter()
	for i := 0; i < frameLimitPerWindow; i++ {
		l.allow("s1")
	}
	l.forget("s1")
	if !l.allow("s1") {
		t.Error("socket still throttled after forget")
	}
}
