package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
	"signupbot/internal/ports/output"
)

var t0 = time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)

// memStore is an in-memory output.Store. A transaction works on a copy of
// the state that replaces it on commit, and holds the store lock for its
// whole duration, so transactions are fully serialized.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

type participantKey struct {
	eventID uint
	userID  string
}

type reminderKey struct {
	eventID  uint
	interval string
}

type statsKey struct {
	guildID string
	userID  string
}

type memState struct {
	events       map[uint]entities.Event
	participants map[participantKey]entities.Participant
	reminders    map[reminderKey]entities.Reminder
	stats        map[statsKey]entities.ParticipantStatistics
	audit        []entities.AuditLogEntry
	nextEventID  uint
	nextAuditID  int64
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		events:       map[uint]entities.Event{},
		participants: map[participantKey]entities.Participant{},
		reminders:    map[reminderKey]entities.Reminder{},
		stats:        map[statsKey]entities.ParticipantStatistics{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		events:       make(map[uint]entities.Event, len(s.events)),
		participants: make(map[participantKey]entities.Participant, len(s.participants)),
		reminders:    maps.Clone(s.reminders),
		stats:        make(map[statsKey]entities.ParticipantStatistics, len(s.stats)),
		audit:        slices.Clone(s.audit),
		nextEventID:  s.nextEventID,
		nextAuditID:  s.nextAuditID,
	}
	for k, v := range s.events {
		c.events[k] = copyEvent(v)
	}
	for k, v := range s.participants {
		c.participants[k] = copyParticipant(v)
	}
	for k, v := range s.stats {
		c.stats[k] = copyStats(v)
	}
	return c
}

func copyEvent(e entities.Event) entities.Event {
	e.RoleCapacity = maps.Clone(e.RoleCapacity)
	e.AllowedRoles = slices.Clone(e.AllowedRoles)
	e.Participants = nil
	return e
}

func copyParticipant(p entities.Participant) entities.Participant {
	if p.Position != nil {
		pos := *p.Position
		p.Position = &pos
	}
	return p
}

func copyStats(st entities.ParticipantStatistics) entities.ParticipantStatistics {
	if st.Rank != nil {
		r := *st.Rank
		st.Rank = &r
	}
	return st
}

func (m *memStore) repos(tx *memState) memRepos { return memRepos{store: m, tx: tx} }

func (m *memStore) Events() output.EventRepository             { return memEvents{m.repos(nil)} }
func (m *memStore) Participants() output.ParticipantRepository { return memParticipants{m.repos(nil)} }
func (m *memStore) Reminders() output.ReminderRepository       { return memReminders{m.repos(nil)} }
func (m *memStore) Statistics() output.StatisticsRepository    { return memStatistics{m.repos(nil)} }
func (m *memStore) AuditLog() output.AuditLogRepository        { return memAudit{m.repos(nil)} }

func (m *memStore) InTx(ctx context.Context, fn output.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := m.state.clone()
	if err := fn(ctx, m.repos(tx)); err != nil {
		return err
	}
	m.state = tx
	return nil
}

func (m *memStore) InEventTx(ctx context.Context, eventID uint, fn output.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.state.events[eventID]
	if !ok || ev.IsDeleted() {
		return domain.ErrEventNotFound
	}
	tx := m.state.clone()
	if err := fn(ctx, m.repos(tx)); err != nil {
		return err
	}
	m.state = tx
	return nil
}

// memRepos binds repositories either to a transaction copy or to the
// committed state under the store lock.
type memRepos struct {
	store *memStore
	tx    *memState
}

func (r memRepos) acquire() (*memState, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.store.mu.Lock()
	return r.store.state, r.store.mu.Unlock
}

func (r memRepos) Events() output.EventRepository             { return memEvents{r} }
func (r memRepos) Participants() output.ParticipantRepository { return memParticipants{r} }
func (r memRepos) Reminders() output.ReminderRepository       { return memReminders{r} }
func (r memRepos) Statistics() output.StatisticsRepository    { return memStatistics{r} }
func (r memRepos) AuditLog() output.AuditLogRepository        { return memAudit{r} }

type memEvents struct{ memRepos }

func (r memEvents) Create(_ context.Context, event *entities.Event) error {
	st, unlock := r.acquire()
	defer unlock()
	st.nextEventID++
	event.ID = st.nextEventID
	st.events[event.ID] = copyEvent(*event)
	return nil
}

func (r memEvents) FindByID(_ context.Context, id uint) (*entities.Event, error) {
	st, unlock := r.acquire()
	defer unlock()
	ev, ok := st.events[id]
	if !ok || ev.IsDeleted() {
		return nil, domain.ErrEventNotFound
	}
	ev = copyEvent(ev)
	return &ev, nil
}

func (r memEvents) FindByMessageID(_ context.Context, messageID string) (*entities.Event, error) {
	st, unlock := r.acquire()
	defer unlock()
	for _, ev := range st.events {
		if ev.MessageID == messageID && !ev.IsDeleted() {
			ev = copyEvent(ev)
			return &ev, nil
		}
	}
	return nil, domain.ErrEventNotFound
}

func (r memEvents) UpdateMessageRefs(_ context.Context, id uint, messageID, threadID string) error {
	return r.mutate(id, func(ev *entities.Event) bool {
		ev.MessageID, ev.ThreadID = messageID, threadID
		return true
	})
}

func (r memEvents) list(keep func(entities.Event) bool) []entities.Event {
	st, unlock := r.acquire()
	defer unlock()
	var out []entities.Event
	for _, ev := range st.events {
		if keep(ev) {
			out = append(out, copyEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memEvents) ListScheduledStartingBefore(_ context.Context, until time.Time) ([]entities.Event, error) {
	return r.list(func(ev entities.Event) bool {
		return !ev.IsDeleted() && ev.Status == domain.EventScheduled && !ev.StartTime.After(until)
	}), nil
}

func (r memEvents) ListByStatus(_ context.Context, status string) ([]entities.Event, error) {
	return r.list(func(ev entities.Event) bool { return !ev.IsDeleted() && ev.Status == status }), nil
}

func (r memEvents) ListArchived(_ context.Context) ([]entities.Event, error) {
	return r.list(func(ev entities.Event) bool {
		return !ev.IsDeleted() && ev.Status == domain.EventCompleted && ev.IsArchived()
	}), nil
}

func (r memEvents) ListVoicePending(_ context.Context) ([]entities.Event, error) {
	return r.list(func(ev entities.Event) bool {
		p := ev.Voice.State.Phase
		return !ev.IsDeleted() && (p == entities.VoiceScheduled || p == entities.VoiceCreated)
	}), nil
}

func (r memEvents) mutate(id uint, fn func(ev *entities.Event) bool) error {
	st, unlock := r.acquire()
	defer unlock()
	ev, ok := st.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	if fn(&ev) {
		st.events[id] = ev
	}
	return nil
}

func (r memEvents) TransitionStatus(_ context.Context, id uint, from, to string) (bool, error) {
	changed := false
	err := r.mutate(id, func(ev *entities.Event) bool {
		if ev.Status != from {
			return false
		}
		ev.Status = to
		changed = true
		return true
	})
	return changed, err
}

func (r memEvents) MarkArchived(_ context.Context, id uint, at time.Time) error {
	return r.mutate(id, func(ev *entities.Event) bool { ev.ArchivedAt = at; return true })
}

func (r memEvents) MarkDeleted(_ context.Context, id uint, at time.Time) error {
	return r.mutate(id, func(ev *entities.Event) bool { ev.DeletedAt = at; return true })
}

func (r memEvents) UpdateVoiceState(_ context.Context, id uint, from entities.VoicePhase, state entities.VoiceChannelState) (bool, error) {
	changed := false
	err := r.mutate(id, func(ev *entities.Event) bool {
		if ev.Voice.State.Phase != from {
			return false
		}
		ev.Voice.State = state
		changed = true
		return true
	})
	return changed, err
}

type memParticipants struct{ memRepos }

func (r memParticipants) Create(_ context.Context, p *entities.Participant) error {
	st, unlock := r.acquire()
	defer unlock()
	k := participantKey{p.EventID, p.UserID}
	if _, ok := st.participants[k]; ok {
		return domain.ErrParticipantExists
	}
	st.participants[k] = copyParticipant(*p)
	return nil
}

func (r memParticipants) Find(_ context.Context, eventID uint, userID string) (*entities.Participant, error) {
	st, unlock := r.acquire()
	defer unlock()
	p, ok := st.participants[participantKey{eventID, userID}]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	p = copyParticipant(p)
	return &p, nil
}

func (r memParticipants) filter(eventID uint, keep func(entities.Participant) bool) []entities.Participant {
	st, unlock := r.acquire()
	defer unlock()
	var out []entities.Participant
	for k, p := range st.participants {
		if k.eventID == eventID && keep(p) {
			out = append(out, copyParticipant(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if pa, pb := a.WaitlistPosition(), b.WaitlistPosition(); pa != pb {
			return pa < pb
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
	return out
}

func (r memParticipants) ListByEvent(_ context.Context, eventID uint) ([]entities.Participant, error) {
	return r.filter(eventID, func(entities.Participant) bool { return true }), nil
}

func (r memParticipants) ListByEventAndStatus(_ context.Context, eventID uint, status string) ([]entities.Participant, error) {
	return r.filter(eventID, func(p entities.Participant) bool { return p.Status == status }), nil
}

func (r memParticipants) Update(_ context.Context, p *entities.Participant) error {
	st, unlock := r.acquire()
	defer unlock()
	k := participantKey{p.EventID, p.UserID}
	if _, ok := st.participants[k]; !ok {
		return domain.ErrParticipantNotFound
	}
	st.participants[k] = copyParticipant(*p)
	return nil
}

func (r memParticipants) Delete(_ context.Context, eventID uint, userID string) error {
	st, unlock := r.acquire()
	defer unlock()
	k := participantKey{eventID, userID}
	if _, ok := st.participants[k]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(st.participants, k)
	return nil
}

func (r memParticipants) CountConfirmed(_ context.Context, eventID uint) (int, error) {
	return len(r.filter(eventID, func(p entities.Participant) bool { return p.IsConfirmed() })), nil
}

func (r memParticipants) CountConfirmedByRole(_ context.Context, eventID uint, role string) (int, error) {
	return len(r.filter(eventID, func(p entities.Participant) bool { return p.IsConfirmed() && p.Role == role })), nil
}

func (r memParticipants) MaxPosition(_ context.Context, eventID uint) (int, error) {
	highest := 0
	for _, p := range r.filter(eventID, func(p entities.Participant) bool { return p.IsWaitlisted() }) {
		highest = max(highest, p.WaitlistPosition())
	}
	return highest, nil
}

func (r memParticipants) ShiftPositionsAfter(_ context.Context, eventID uint, pos int) error {
	st, unlock := r.acquire()
	defer unlock()
	for k, p := range st.participants {
		if k.eventID == eventID && p.IsWaitlisted() && p.WaitlistPosition() > pos {
			p.SetWaitlisted(p.WaitlistPosition() - 1)
			st.participants[k] = p
		}
	}
	return nil
}

func (r memParticipants) CountCompletedParticipations(_ context.Context, guildID, userID string) (int, int, error) {
	st, unlock := r.acquire()
	defer unlock()
	joined, noShows := 0, 0
	for k, p := range st.participants {
		ev := st.events[k.eventID]
		if k.userID != userID || ev.GuildID != guildID || ev.Status != domain.EventCompleted || !p.IsConfirmed() {
			continue
		}
		joined++
		if p.NoShow {
			noShows++
		}
	}
	return joined, noShows, nil
}

type memReminders struct{ memRepos }

func (r memReminders) Claim(_ context.Context, rem *entities.Reminder) (bool, error) {
	st, unlock := r.acquire()
	defer unlock()
	k := reminderKey{rem.EventID, rem.Interval}
	if _, ok := st.reminders[k]; ok {
		return false, nil
	}
	st.reminders[k] = *rem
	return true, nil
}

func (r memReminders) Release(_ context.Context, eventID uint, interval string) error {
	st, unlock := r.acquire()
	defer unlock()
	delete(st.reminders, reminderKey{eventID, interval})
	return nil
}

func (r memReminders) SetMessageID(_ context.Context, eventID uint, interval, messageID string) error {
	st, unlock := r.acquire()
	defer unlock()
	k := reminderKey{eventID, interval}
	rem, ok := st.reminders[k]
	if !ok {
		return fmt.Errorf("reminder %d/%s not found", eventID, interval)
	}
	rem.MessageID = messageID
	st.reminders[k] = rem
	return nil
}

func (r memReminders) ListByEvent(_ context.Context, eventID uint) ([]entities.Reminder, error) {
	st, unlock := r.acquire()
	defer unlock()
	var out []entities.Reminder
	for k, rem := range st.reminders {
		if k.eventID == eventID {
			out = append(out, rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval < out[j].Interval })
	return out, nil
}

type memStatistics struct{ memRepos }

func (r memStatistics) Upsert(_ context.Context, stats *entities.ParticipantStatistics) error {
	st, unlock := r.acquire()
	defer unlock()
	st.stats[statsKey{stats.GuildID, stats.UserID}] = copyStats(*stats)
	return nil
}

func (r memStatistics) Find(_ context.Context, guildID, userID string) (*entities.ParticipantStatistics, error) {
	st, unlock := r.acquire()
	defer unlock()
	s, ok := st.stats[statsKey{guildID, userID}]
	if !ok {
		return nil, nil
	}
	s = copyStats(s)
	return &s, nil
}

func (r memStatistics) ListByGuild(_ context.Context, guildID string) ([]entities.ParticipantStatistics, error) {
	st, unlock := r.acquire()
	defer unlock()
	var out []entities.ParticipantStatistics
	for k, s := range st.stats {
		if k.guildID == guildID {
			out = append(out, copyStats(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r memStatistics) UpdateRanks(_ context.Context, guildID string, ranks map[string]*int) error {
	st, unlock := r.acquire()
	defer unlock()
	for userID, rank := range ranks {
		k := statsKey{guildID, userID}
		s, ok := st.stats[k]
		if !ok {
			continue
		}
		s.Rank = nil
		if rank != nil {
			v := *rank
			s.Rank = &v
		}
		st.stats[k] = s
	}
	return nil
}

type memAudit struct{ memRepos }

func (r memAudit) Append(_ context.Context, entry *entities.AuditLogEntry) error {
	st, unlock := r.acquire()
	defer unlock()
	st.nextAuditID++
	entry.ID = st.nextAuditID
	st.audit = append(st.audit, *entry)
	return nil
}

func (r memAudit) ListByEvent(_ context.Context, eventID uint) ([]entities.AuditLogEntry, error) {
	st, unlock := r.acquire()
	defer unlock()
	var out []entities.AuditLogEntry
	for _, e := range st.audit {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memAudit) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	st, unlock := r.acquire()
	defer unlock()
	kept := st.audit[:0]
	var n int64
	for _, e := range st.audit {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	st.audit = kept
	return n, nil
}

type sentMessage struct {
	Target  string
	Content string
	ID      string
}

// fakeGateway records every call. Errors set on it are returned by the
// matching operation.
type fakeGateway struct {
	mu sync.Mutex

	calls           []string
	channelMessages []sentMessage
	directMessages  []sentMessage
	deletedMessages []string
	renders         []uint
	voiceRequests   []output.VoiceChannelRequest
	deletedChannels []string
	missingMembers  map[string]bool
	nextID          int

	sendErr          error
	dmErr            error
	deleteMessageErr error
	createVoiceErr   error
	deleteChannelErr error
	renderErr        error
}

func (g *fakeGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s-%d", prefix, g.nextID)
}

func (g *fakeGateway) SendChannelMessage(_ context.Context, channelID, content string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("send:" + channelID)
	if g.sendErr != nil {
		return "", g.sendErr
	}
	id := g.id("msg")
	g.channelMessages = append(g.channelMessages, sentMessage{Target: channelID, Content: content, ID: id})
	return id, nil
}

func (g *fakeGateway) SendDirectMessage(_ context.Context, userID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("dm:" + userID)
	if g.dmErr != nil {
		return g.dmErr
	}
	g.directMessages = append(g.directMessages, sentMessage{Target: userID, Content: content})
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("delete_message:" + messageID)
	if g.deleteMessageErr != nil {
		return g.deleteMessageErr
	}
	g.deletedMessages = append(g.deletedMessages, messageID)
	return nil
}

func (g *fakeGateway) RenderEventMessage(_ context.Context, event *entities.Event, _ []entities.Participant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("render:%d", event.ID))
	if g.renderErr != nil {
		return g.renderErr
	}
	g.renders = append(g.renders, event.ID)
	return nil
}

func (g *fakeGateway) CreateVoiceChannel(_ context.Context, req output.VoiceChannelRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("create_voice:" + req.Name)
	if g.createVoiceErr != nil {
		return "", g.createVoiceErr
	}
	g.voiceRequests = append(g.voiceRequests, req)
	return g.id("voice"), nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("delete_channel:" + channelID)
	if g.deleteChannelErr != nil {
		return g.deleteChannelErr
	}
	g.deletedChannels = append(g.deletedChannels, channelID)
	return nil
}

func (g *fakeGateway) FetchMember(_ context.Context, guildID, userID string) (*output.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.missingMembers[userID] {
		return nil, output.ErrRemoteNotFound
	}
	return &output.Member{UserID: userID}, nil
}

type fakeGuilds struct {
	settings output.GuildSettings
}

func (f *fakeGuilds) Guild(string) output.GuildSettings { return f.settings }

// keyTranslator renders "key|Title".
type keyTranslator struct{}

func (keyTranslator) T(_, key string, data map[string]any) string {
	if title, ok := data["Title"]; ok {
		return fmt.Sprintf("%s|%v", key, title)
	}
	return key
}

type harness struct {
	store        *memStore
	gateway      *fakeGateway
	guilds       *fakeGuilds
	participants *ParticipantService
	events       *EventService
	lifecycle    *LifecycleService
	reminders    *ReminderService
	voice        *VoiceService
	stats        *StatisticsService
	scheduler    *Scheduler
	now          time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemStore(),
		gateway: &fakeGateway{},
		guilds: &fakeGuilds{settings: output.GuildSettings{
			Locale:                      "en",
			ReminderIntervals:           []string{"1h"},
			AutoDeleteHours:             24,
			VoiceCreateBeforeMinutes:    15,
			VoicePostEventBufferMinutes: 30,
			MinEventsForRank:            1,
		}},
		now: t0,
	}
	log := zerolog.Nop()
	clock := func() time.Time { return h.now }

	h.voice = NewVoiceService(h.store, h.gateway, h.guilds, log)
	h.stats = NewStatisticsService(h.store, h.guilds, log)
	h.lifecycle = NewLifecycleService(h.store, h.gateway, h.guilds, keyTranslator{}, h.stats, h.voice, log)
	h.reminders = NewReminderService(h.store, h.gateway, h.guilds, keyTranslator{}, log)
	h.participants = NewParticipantService(h.store, h.gateway, h.guilds, keyTranslator{}, log)
	h.events = NewEventService(h.store, h.gateway, h.lifecycle, h.voice, log)
	h.scheduler = NewScheduler(SchedulerConfig{LogRetention: 30 * 24 * time.Hour}, h.store, h.reminders, h.lifecycle, h.voice, log)

	h.voice.now = clock
	h.stats.now = clock
	h.lifecycle.now = clock
	h.participants.now = clock
	h.events.now = clock
	h.scheduler.now = clock
	return h
}

// seedEvent stores a scheduled event starting two hours after t0.
func (h *harness) seedEvent(t *testing.T, mutate func(e *entities.Event)) *entities.Event {
	t.Helper()
	e := &entities.Event{
		GuildID:   "g1",
		ChannelID: "c1",
		MessageID: "m1",
		Title:     "Raid night",
		StartTime: t0.Add(2 * time.Hour),
		Status:    domain.EventScheduled,
		Voice:     entities.VoiceChannel{State: entities.VoiceStateNotScheduled()},
		CreatedAt: t0,
	}
	if mutate != nil {
		mutate(e)
	}
	if err := h.store.Events().Create(context.Background(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func (h *harness) join(t *testing.T, eventID uint, userID, role string) *entities.Participant {
	t.Helper()
	p, err := h.participants.Join(context.Background(), joinReq(eventID, userID, role))
	if err != nil {
		t.Fatalf("Join(%s) error = %v", userID, err)
	}
	h.now = h.now.Add(time.Second)
	return p
}

func (h *harness) participant(t *testing.T, eventID uint, userID string) *entities.Participant {
	t.Helper()
	p, err := h.store.Participants().Find(context.Background(), eventID, userID)
	if err != nil {
		t.Fatalf("Find(%s) error = %v", userID, err)
	}
	return p
}

func (h *harness) event(t *testing.T, id uint) *entities.Event {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	ev, ok := h.store.state.events[id]
	if !ok {
		t.Fatalf("event %d missing", id)
	}
	out := copyEvent(ev)
	return &out
}

// checkQueue asserts the capacity and waitlist invariants for an event.
func (h *harness) checkQueue(t *testing.T, event *entities.Event) {
	t.Helper()
	all, err := h.store.Participants().ListByEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("ListByEvent error = %v", err)
	}
	confirmed := 0
	perRole := map[string]int{}
	var positions []int
	for _, p := range all {
		switch p.Status {
		case domain.StatusConfirmed:
			confirmed++
			perRole[p.Role]++
		case domain.StatusWaitlist:
			if p.Position == nil {
				t.Fatalf("waitlisted %s has no position", p.UserID)
			}
			positions = append(positions, *p.Position)
			continue
		}
		if p.Position != nil {
			t.Fatalf("%s (%s) has position %d", p.UserID, p.Status, *p.Position)
		}
	}
	if event.MaxParticipants > 0 && confirmed > event.MaxParticipants {
		t.Fatalf("confirmed = %d, exceeds max %d", confirmed, event.MaxParticipants)
	}
	for role, n := range perRole {
		if limit, ok := event.RoleLimit(role); ok && n > limit {
			t.Fatalf("role %s confirmed = %d, exceeds %d", role, n, limit)
		}
	}
	sort.Ints(positions)
	for i, pos := range positions {
		if pos != i+1 {
			t.Fatalf("waitlist positions = %v, want 1..%d", positions, len(positions))
		}
	}
}

func joinReq(eventID uint, userID, role string) input.JoinRequest {
	return input.JoinRequest{EventID: eventID, UserID: userID, Username: userID, Role: role}
}

var errBoom = errors.New("boom")
