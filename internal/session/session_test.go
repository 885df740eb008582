package session

import (
	"encoding/json"
	"testing"
	"time"

	"classhub/internal/room"
)

func TestSession_AddParticipantIdempotentRejoin(t *testing.T) {
	s := NewSession("XJ7PK")

	if _, err := s.AddParticipant("stu-1", "sock-a", "Ana"); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if s.ParticipantCount() != 1 {
		t.Fatalf("participant count = %d, want 1", s.ParticipantCount())
	}

	// Same participant on a new socket: stale mapping replaced, not duplicated.
	replaced, err := s.AddParticipant("stu-1", "sock-b", "Ana")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if replaced != "sock-a" {
		t.Errorf("replaced socket = %q, want sock-a", replaced)
	}
	if s.ParticipantCount() != 1 {
		t.Errorf("participant count after rejoin = %d, want 1", s.ParticipantCount())
	}

	if pid, ok := s.ParticipantID("sock-b"); !ok || pid != "stu-1" {
		t.Errorf("ParticipantID(sock-b) = %q, %v", pid, ok)
	}
	if _, ok := s.ParticipantID("sock-a"); ok {
		t.Error("stale socket should no longer resolve")
	}
}

func TestSession_AddParticipantValidation(t *testing.T) {
	s := NewSession("XJ7PK")
	if _, err := s.AddParticipant("", "sock-a", ""); err != ErrInvalidParticipant {
		t.Errorf("empty participant ID: got %v, want ErrInvalidParticipant", err)
	}
}

func TestSession_RemoveParticipantKeepsHistory(t *testing.T) {
	s := NewSession("XJ7PK")
	s.AddParticipant("stu-1", "sock-a", "Ana")

	r, err := s.CreateRoom(room.KindPoll, "")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	poll := r.(*room.Poll)
	poll.Update(json.RawMessage(`{"question":"Pace?","options":["Fast","Slow"]}`))
	poll.Start()
	if ok, _ := poll.Submit("stu-1", json.RawMessage(`{"optionIndex":0}`)); !ok {
		t.Fatal("vote should succeed")
	}

	// Disconnect, then rejoin with the same stable participant ID.
	pid, ok := s.RemoveParticipant("sock-a")
	if !ok || pid != "stu-1" {
		t.Fatalf("RemoveParticipant = %q, %v", pid, ok)
	}
	if s.ParticipantCount() != 0 {
		t.Error("disconnect should drop the socket")
	}
	s.AddParticipant("stu-1", "sock-b", "Ana")

	// Vote state survived the disconnect: a second vote is still a duplicate.
	if ok, _ := poll.Submit("stu-1", json.RawMessage(`{"optionIndex":1}`)); ok {
		t.Error("reconnected participant must still be deduplicated")
	}
	if _, total := poll.Results(); total != 1 {
		t.Errorf("total votes = %d, want 1", total)
	}
}

func TestSession_RemoveParticipantUnknownSocket(t *testing.T) {
	s := NewSession("XJ7PK")
	if _, ok := s.RemoveParticipant("nope"); ok {
		t.Error("removing unknown socket should report false")
	}
}

func TestSession_DuplicateRoomKey(t *testing.T) {
	s := NewSession("XJ7PK")

	if _, err := s.CreateRoom(room.KindPoll, "w1"); err != nil {
		t.Fatalf("first CreateRoom failed: %v", err)
	}
	if _, err := s.CreateRoom(room.KindPoll, "w1"); err != ErrDuplicateRoom {
		t.Errorf("second CreateRoom: got %v, want ErrDuplicateRoom", err)
	}
	if s.RoomCount() != 1 {
		t.Errorf("room count = %d, want exactly 1", s.RoomCount())
	}

	// Same kind under a different widget ID is a distinct room.
	if _, err := s.CreateRoom(room.KindPoll, "w2"); err != nil {
		t.Errorf("CreateRoom with different widget ID failed: %v", err)
	}
	// Different kind without widget ID coexists too.
	if _, err := s.CreateRoom(room.KindLinkShare, ""); err != nil {
		t.Errorf("CreateRoom of different kind failed: %v", err)
	}
}

func TestSession_GetAndDeleteRoom(t *testing.T) {
	s := NewSession("XJ7PK")
	s.CreateRoom(room.KindPoll, "w1")

	if _, err := s.GetRoom(room.KindPoll, "w1"); err != nil {
		t.Errorf("GetRoom failed: %v", err)
	}
	if _, err := s.GetRoom(room.KindPoll, "w9"); err != ErrRoomNotFound {
		t.Errorf("GetRoom missing widget: got %v, want ErrRoomNotFound", err)
	}

	if !s.DeleteRoom(room.KindPoll, "w1") {
		t.Error("DeleteRoom should report true for existing room")
	}
	if s.DeleteRoom(room.KindPoll, "w1") {
		t.Error("DeleteRoom should be idempotent")
	}
}

func TestSession_PruneIdleRooms(t *testing.T) {
	s := NewSession("XJ7PK")
	stale, _ := s.CreateRoom(room.KindPoll, "old")
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	fresh, _ := s.CreateRoom(room.KindPoll, "new")

	if n := s.PruneIdleRooms(cutoff); n != 1 {
		t.Errorf("pruned %d rooms, want 1", n)
	}
	if _, err := s.GetRoom(stale.Kind(), stale.WidgetID()); err != ErrRoomNotFound {
		t.Error("stale room should be gone")
	}
	if _, err := s.GetRoom(fresh.Kind(), fresh.WidgetID()); err != nil {
		t.Error("fresh room should survive")
	}
}

func TestSession_TouchAdvancesActivity(t *testing.T) {
	s := NewSession("XJ7PK")
	before := s.LastActivity()
	time.Sleep(5 * time.Millisecond)
	s.Touch()
	if !s.LastActivity().After(before) {
		t.Error("Touch should advance the activity timestamp")
	}
}
