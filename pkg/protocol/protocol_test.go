package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseRoomEvent(t *testing.T) {
	tests := []struct {
		name  string
		event string
		want  Address
		ok    bool
	}{
		{"session verb without widget", "session:poll:start", Address{RoomType: "poll", Verb: "start"}, true},
		{"session verb with widget", "session:poll:w1:submit", Address{RoomType: "poll", WidgetID: "w1", Verb: "submit"}, true},
		{"stop verb", "session:linkshare:stop", Address{RoomType: "linkshare", Verb: "stop"}, true},
		{"update with widget", "session:linkshare:abc:update", Address{RoomType: "linkshare", WidgetID: "abc", Verb: "update"}, true},
		{"delete", "session:poll:w2:delete", Address{RoomType: "poll", WidgetID: "w2", Verb: "delete"}, true},
		{"reset", "session:feedback:reset", Address{RoomType: "feedback", Verb: "reset"}, true},
		{"requestState bare", "poll:requestState", Address{RoomType: "poll", Verb: "requestState"}, true},
		{"requestState with widget", "poll:w1:requestState", Address{RoomType: "poll", WidgetID: "w1", Verb: "requestState"}, true},
		{"requestState with session prefix", "session:poll:requestState", Address{RoomType: "poll", Verb: "requestState"}, true},
		{"requestState with session prefix and widget", "session:poll:w1:requestState", Address{RoomType: "poll", WidgetID: "w1", Verb: "requestState"}, true},
		{"session create is not a room event", "session:create", Address{}, false},
		{"session join is not a room event", "session:join", Address{}, false},
		{"createRoom is not a room event", "session:createRoom", Address{}, false},
		{"unknown verb", "session:poll:explode", Address{}, false},
		{"missing session prefix", "poll:start", Address{}, false},
		{"empty room type", "session::start", Address{}, false},
		{"empty widget", "session:poll::start", Address{}, false},
		{"too many segments", "session:poll:w1:x:start", Address{}, false},
		{"bare requestState", "requestState", Address{}, false},
		{"empty string", "", Address{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRoomEvent(tt.event)
			if ok != tt.ok {
				t.Fatalf("ParseRoomEvent(%q) ok = %v, want %v", tt.event, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRoomEvent(%q) = %+v, want %+v", tt.event, got, tt.want)
			}
		})
	}
}

func TestRoomEventName(t *testing.T) {
	if got := RoomEventName("poll", "", SuffixStarted); got != "poll:started" {
		t.Errorf("got %q", got)
	}
	if got := RoomEventName("poll", "w1", SuffixStateUpdate); got != "poll:w1:stateUpdate" {
		t.Errorf("got %q", got)
	}
}

func TestRoomEventNameRoundTripsThroughParser(t *testing.T) {
	name := "session:" + RoomEventName("linkshare", "w9", VerbSubmit)
	addr, ok := ParseRoomEvent(name)
	if !ok {
		t.Fatalf("expected %q to parse", name)
	}
	if addr.RoomType != "linkshare" || addr.WidgetID != "w9" || addr.Verb != VerbSubmit {
		t.Errorf("got %+v", addr)
	}
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Envelope{Event: "poll:started"})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"event":"poll:started"}` {
		t.Errorf("got %s", raw)
	}
}
