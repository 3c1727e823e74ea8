package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
)

func TestJoinLeave_TwoSlotQueue(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) { e.MaxParticipants = 2 })

	if p := h.join(t, ev.ID, "A", ""); p.Status != domain.StatusConfirmed {
		t.Fatalf("A status = %s, want confirmed", p.Status)
	}
	if p := h.join(t, ev.ID, "B", ""); p.Status != domain.StatusConfirmed {
		t.Fatalf("B status = %s, want confirmed", p.Status)
	}
	c := h.join(t, ev.ID, "C", "")
	if c.Status != domain.StatusWaitlist || c.WaitlistPosition() != 1 {
		t.Fatalf("C = %s/%d, want waitlist/1", c.Status, c.WaitlistPosition())
	}

	res, err := h.participants.Leave(context.Background(), ev.ID, "A")
	if err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	if res.Promoted == nil || res.Promoted.UserID != "C" {
		t.Fatalf("Promoted = %+v, want C", res.Promoted)
	}
	if got := h.participant(t, ev.ID, "C"); got.Status != domain.StatusConfirmed || got.Position != nil {
		t.Fatalf("C after promotion = %s/%v, want confirmed/nil", got.Status, got.Position)
	}
	waitlist, _ := h.store.Participants().ListByEventAndStatus(context.Background(), ev.ID, domain.StatusWaitlist)
	if len(waitlist) != 0 {
		t.Fatalf("waitlist = %d entries, want empty", len(waitlist))
	}
	h.checkQueue(t, ev)

	if len(h.gateway.directMessages) != 1 || h.gateway.directMessages[0].Target != "C" {
		t.Fatalf("dms = %+v, want one promotion dm to C", h.gateway.directMessages)
	}
}

func TestJoin_RequireApprovalThenApprove(t *testing.T) {
	h := newHarness(t)
	h.guilds.settings.ApprovalChannelIDs = []string{"approvals"}
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.MaxParticipants = 5
		e.RequireApproval = true
	})

	p := h.join(t, ev.ID, "U", "")
	if p.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if len(h.gateway.channelMessages) != 1 || h.gateway.channelMessages[0].Target != "approvals" {
		t.Fatalf("channel messages = %+v, want approval request", h.gateway.channelMessages)
	}

	res, err := h.participants.Approve(context.Background(), ev.ID, []string{"U", "ghost"}, "mod")
	if err != nil {
		t.Fatalf("Approve error = %v", err)
	}
	if len(res.Confirmed) != 1 || res.Confirmed[0].UserID != "U" {
		t.Fatalf("Confirmed = %+v, want [U]", res.Confirmed)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "ghost" {
		t.Fatalf("Skipped = %v, want [ghost]", res.Skipped)
	}
	if got := h.participant(t, ev.ID, "U"); got.Status != domain.StatusConfirmed {
		t.Fatalf("U status = %s, want confirmed", got.Status)
	}
}

func TestApprove_FullEventWaitlists(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.MaxParticipants = 1
		e.RequireApproval = true
	})
	h.join(t, ev.ID, "A", "")
	h.join(t, ev.ID, "B", "")

	res, err := h.participants.Approve(context.Background(), ev.ID, []string{"A", "B"}, "mod")
	if err != nil {
		t.Fatalf("Approve error = %v", err)
	}
	if len(res.Confirmed) != 1 || len(res.Waitlisted) != 1 {
		t.Fatalf("result = %+v, want one confirmed and one waitlisted", res)
	}
	if b := h.participant(t, ev.ID, "B"); b.Status != domain.StatusWaitlist || b.WaitlistPosition() != 1 {
		t.Fatalf("B = %s/%d, want waitlist/1", b.Status, b.WaitlistPosition())
	}
	h.checkQueue(t, ev)
}

func TestJoin_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *entities.Event)
		req     func(id uint) input.JoinRequest
		advance time.Duration
		want    error
	}{
		{
			name:   "completed event",
			mutate: func(e *entities.Event) { e.Status = domain.EventCompleted },
			want:   domain.ErrSignupsClosed,
		},
		{
			name:   "active without late signup",
			mutate: func(e *entities.Event) { e.Status = domain.EventActive },
			want:   domain.ErrSignupsClosed,
		},
		{
			name:   "deadline passed",
			mutate: func(e *entities.Event) { e.DeadlineOffset = 3 * time.Hour },
			want:   domain.ErrSignupDeadlinePassed,
		},
		{
			name:   "unknown role",
			mutate: func(e *entities.Event) { e.RoleCapacity = map[string]int{"tank": 2} },
			req:    func(id uint) input.JoinRequest { return joinReq(id, "U", "healer") },
			want:   domain.ErrInvalidRole,
		},
		{
			name:   "roles not allowed",
			mutate: func(e *entities.Event) { e.AllowedRoles = []string{"members"} },
			want:   domain.ErrRoleNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ev := h.seedEvent(t, tt.mutate)
			req := joinReq(ev.ID, "U", "")
			if tt.req != nil {
				req = tt.req(ev.ID)
			}
			_, err := h.participants.Join(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Join error = %v, want %v", err, tt.want)
			}
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("kind = %v, want validation", domain.KindOf(err))
			}
		})
	}
}

func TestJoin_Duplicate(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, nil)
	h.join(t, ev.ID, "A", "")
	if _, err := h.participants.Join(context.Background(), joinReq(ev.ID, "A", "")); !errors.Is(err, domain.ErrParticipantExists) {
		t.Fatalf("second Join error = %v, want %v", err, domain.ErrParticipantExists)
	}
}

func TestJoin_MissingEvent(t *testing.T) {
	h := newHarness(t)
	if _, err := h.participants.Join(context.Background(), joinReq(42, "A", "")); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("Join error = %v, want %v", err, domain.ErrEventNotFound)
	}
}

func TestJoin_LateSignupOnActiveEvent(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.Status = domain.EventActive
		e.AllowLateSignup = true
		e.StartTime = t0.Add(-10 * time.Minute)
	})
	if p := h.join(t, ev.ID, "A", ""); p.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", p.Status)
	}
}

func TestJoin_BenchOverflowForcesWaitlist(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.AllowedRoles = []string{"members"}
		e.BenchOverflow = true
	})
	guest := h.join(t, ev.ID, "guest", "")
	if guest.Status != domain.StatusWaitlist || guest.WaitlistPosition() != 1 {
		t.Fatalf("guest = %s/%d, want waitlist/1", guest.Status, guest.WaitlistPosition())
	}
	req := joinReq(ev.ID, "member", "")
	req.CallerRoleIDs = []string{"members"}
	member, err := h.participants.Join(context.Background(), req)
	if err != nil {
		t.Fatalf("Join error = %v", err)
	}
	if member.Status != domain.StatusConfirmed {
		t.Fatalf("member status = %s, want confirmed", member.Status)
	}
}

func TestJoin_RoleCapacity(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 2}
	})
	h.join(t, ev.ID, "T1", "tank")
	if p := h.join(t, ev.ID, "T2", "tank"); p.Status != domain.StatusWaitlist {
		t.Fatalf("T2 status = %s, want waitlist", p.Status)
	}
	if p := h.join(t, ev.ID, "D1", "dps"); p.Status != domain.StatusConfirmed {
		t.Fatalf("D1 status = %s, want confirmed", p.Status)
	}
	h.checkQueue(t, ev)
}

func TestLeave_WaitlistCompaction(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) { e.MaxParticipants = 1 })
	for _, u := range []string{"A", "B", "C", "D"} {
		h.join(t, ev.ID, u, "")
	}
	if _, err := h.participants.Leave(context.Background(), ev.ID, "B"); err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	if c := h.participant(t, ev.ID, "C"); c.WaitlistPosition() != 1 {
		t.Fatalf("C position = %d, want 1", c.WaitlistPosition())
	}
	if d := h.participant(t, ev.ID, "D"); d.WaitlistPosition() != 2 {
		t.Fatalf("D position = %d, want 2", d.WaitlistPosition())
	}
	h.checkQueue(t, ev)
}

func TestLeave_PromotionSkipsFullRole(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.MaxParticipants = 2
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 5}
	})
	h.join(t, ev.ID, "T1", "tank")
	h.join(t, ev.ID, "D1", "dps")
	h.join(t, ev.ID, "T2", "tank")
	h.join(t, ev.ID, "D2", "dps")

	res, err := h.participants.Leave(context.Background(), ev.ID, "D1")
	if err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	if res.Promoted == nil || res.Promoted.UserID != "D2" {
		t.Fatalf("Promoted = %+v, want D2", res.Promoted)
	}
	if t2 := h.participant(t, ev.ID, "T2"); t2.WaitlistPosition() != 1 {
		t.Fatalf("T2 position = %d, want 1", t2.WaitlistPosition())
	}
	h.checkQueue(t, ev)
}

func TestLeave_Errors(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, nil)
	if _, err := h.participants.Leave(context.Background(), ev.ID, "nobody"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("Leave error = %v, want %v", err, domain.ErrParticipantNotFound)
	}
	done := h.seedEvent(t, func(e *entities.Event) { e.Status = domain.EventCancelled })
	if _, err := h.participants.Leave(context.Background(), done.ID, "A"); !errors.Is(err, domain.ErrSignupsClosed) {
		t.Fatalf("Leave error = %v, want %v", err, domain.ErrSignupsClosed)
	}
}

func TestPromote(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) { e.MaxParticipants = 1 })
	h.join(t, ev.ID, "A", "")
	h.join(t, ev.ID, "B", "")

	res, err := h.participants.Promote(context.Background(), ev.ID, "B")
	if err != nil {
		t.Fatalf("Promote error = %v", err)
	}
	if !res.NoCapacity || res.Promoted != nil {
		t.Fatalf("result = %+v, want NoCapacity", res)
	}
	if _, err := h.participants.Promote(context.Background(), ev.ID, "A"); !errors.Is(err, domain.ErrParticipantNotQueued) {
		t.Fatalf("Promote(confirmed) error = %v, want %v", err, domain.ErrParticipantNotQueued)
	}

	// Free the slot by hand so promotion has room.
	if err := h.store.Participants().Delete(context.Background(), ev.ID, "A"); err != nil {
		t.Fatal(err)
	}
	res, err = h.participants.Promote(context.Background(), ev.ID, "B")
	if err != nil {
		t.Fatalf("Promote error = %v", err)
	}
	if res.Promoted == nil || res.Promoted.Status != domain.StatusConfirmed {
		t.Fatalf("result = %+v, want B confirmed", res)
	}
	h.checkQueue(t, ev)
}

func TestPromoteNext_IncludesPending(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.MaxParticipants = 3
		e.RequireApproval = true
	})
	h.join(t, ev.ID, "P1", "")
	h.join(t, ev.ID, "P2", "")

	res, err := h.participants.PromoteNext(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("PromoteNext error = %v", err)
	}
	if res.Promoted == nil || res.Promoted.UserID != "P1" {
		t.Fatalf("Promoted = %+v, want P1", res.Promoted)
	}

	empty := h.seedEvent(t, nil)
	res, err = h.participants.PromoteNext(context.Background(), empty.ID)
	if err != nil {
		t.Fatalf("PromoteNext error = %v", err)
	}
	if res.Promoted != nil || res.NoCapacity {
		t.Fatalf("result = %+v, want empty no-op", res)
	}
}

func TestUpdateRole_DemotesIntoWaitlist(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 2}
	})
	h.join(t, ev.ID, "T1", "tank")
	h.join(t, ev.ID, "D1", "dps")
	h.join(t, ev.ID, "T2", "tank") // waitlisted at 1
	joinedAt := h.participant(t, ev.ID, "D1").JoinedAt

	res, err := h.participants.UpdateRole(context.Background(), ev.ID, "D1", "tank")
	if err != nil {
		t.Fatalf("UpdateRole error = %v", err)
	}
	if !res.Demoted {
		t.Fatalf("Demoted = false, want true")
	}
	d1 := h.participant(t, ev.ID, "D1")
	if d1.Status != domain.StatusWaitlist || d1.WaitlistPosition() != 2 {
		t.Fatalf("D1 = %s/%d, want waitlist/2", d1.Status, d1.WaitlistPosition())
	}
	if !d1.JoinedAt.Equal(joinedAt) {
		t.Fatalf("JoinedAt = %v, want %v", d1.JoinedAt, joinedAt)
	}
	h.checkQueue(t, ev)

	if _, err := h.participants.UpdateRole(context.Background(), ev.ID, "T1", "healer"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("UpdateRole error = %v, want %v", err, domain.ErrInvalidRole)
	}
}

func TestUpdateRole_FreedSlotPromotes(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 1}
	})
	h.join(t, ev.ID, "T1", "tank")
	h.join(t, ev.ID, "D1", "dps")
	h.join(t, ev.ID, "T2", "tank")

	res, err := h.participants.UpdateRole(context.Background(), ev.ID, "T1", "dps")
	if err != nil {
		t.Fatalf("UpdateRole error = %v", err)
	}
	if !res.Demoted || res.Promoted == nil || res.Promoted.UserID != "T2" {
		t.Fatalf("result = %+v, want T1 demoted and T2 promoted", res)
	}
	h.checkQueue(t, ev)
}

func TestUpdateRole_SwitchToOpenRolePromotesQueue(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 5}
	})
	h.join(t, ev.ID, "A", "tank")
	h.join(t, ev.ID, "B", "tank")
	if b := h.participant(t, ev.ID, "B"); b.Status != domain.StatusWaitlist {
		t.Fatalf("B status = %s, want waitlist", b.Status)
	}

	res, err := h.participants.UpdateRole(context.Background(), ev.ID, "A", "dps")
	if err != nil {
		t.Fatalf("UpdateRole error = %v", err)
	}
	if res.Demoted {
		t.Fatalf("Demoted = true, want false")
	}
	if res.Promoted == nil || res.Promoted.UserID != "B" {
		t.Fatalf("Promoted = %+v, want B", res.Promoted)
	}
	if a := h.participant(t, ev.ID, "A"); a.Status != domain.StatusConfirmed || a.Role != "dps" {
		t.Fatalf("A = %s/%s, want confirmed/dps", a.Status, a.Role)
	}
	if b := h.participant(t, ev.ID, "B"); b.Status != domain.StatusConfirmed || b.Position != nil {
		t.Fatalf("B = %s/%v, want confirmed without position", b.Status, b.Position)
	}
	h.checkQueue(t, ev)

	found := false
	for _, m := range h.gateway.directMessages {
		if m.Target == "B" && strings.HasPrefix(m.Content, "dm.promoted") {
			found = true
		}
	}
	if !found {
		t.Fatalf("B not notified of promotion: %v", h.gateway.directMessages)
	}
}

func TestJoin_ConcurrentNeverExceedsCapacity(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) { e.MaxParticipants = 3 })

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := RetryOnConflict(context.Background(), func(ctx context.Context) error {
				_, err := h.participants.Join(ctx, joinReq(ev.ID, fmt.Sprintf("u%02d", i), ""))
				return err
			})
			if err != nil {
				t.Errorf("Join error = %v", err)
			}
		}()
	}
	wg.Wait()
	h.checkQueue(t, ev)

	confirmed, _ := h.store.Participants().CountConfirmed(context.Background(), ev.ID)
	if confirmed != 3 {
		t.Fatalf("confirmed = %d, want 3", confirmed)
	}
}

func TestQueueInvariants_MixedSequence(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, func(e *entities.Event) {
		e.MaxParticipants = 3
		e.RoleCapacity = map[string]int{"tank": 1, "dps": 3}
	})
	roles := []string{"tank", "dps"}
	ops := []struct {
		leave bool
		user  int
	}{
		{false, 0}, {false, 1}, {false, 2}, {false, 3}, {false, 4}, {true, 1},
		{false, 5}, {true, 0}, {true, 3}, {false, 6}, {false, 7}, {true, 2},
		{true, 4}, {false, 1}, {true, 6}, {true, 5}, {false, 0},
	}
	for _, op := range ops {
		user := fmt.Sprintf("u%d", op.user)
		var err error
		if op.leave {
			_, err = h.participants.Leave(context.Background(), ev.ID, user)
		} else {
			_, err = h.participants.Join(context.Background(), joinReq(ev.ID, user, roles[op.user%2]))
		}
		if err != nil {
			t.Fatalf("op %+v error = %v", op, err)
		}
		h.now = h.now.Add(time.Second)
		h.checkQueue(t, ev)
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrCapacityConflict
	})
	if !errors.Is(err, domain.ErrCapacityConflict) || calls != 2 {
		t.Fatalf("err = %v calls = %d, want conflict after 2 calls", err, calls)
	}

	calls = 0
	err = RetryOnConflict(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrSignupsClosed
	})
	if !errors.Is(err, domain.ErrSignupsClosed) || calls != 1 {
		t.Fatalf("err = %v calls = %d, want validation after 1 call", err, calls)
	}
}

func TestMutationsAppendAuditEntries(t *testing.T) {
	h := newHarness(t)
	ev := h.seedEvent(t, nil)
	h.join(t, ev.ID, "A", "")
	if _, err := h.participants.Leave(context.Background(), ev.ID, "A"); err != nil {
		t.Fatal(err)
	}
	entries, _ := h.store.AuditLog().ListByEvent(context.Background(), ev.ID)
	if len(entries) != 2 || entries[0].Action != actionJoin || entries[1].Action != actionLeave {
		t.Fatalf("audit = %+v, want join then leave", entries)
	}
}
