package answers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// Options configures an [Engine].
type Options struct {
	PlayerID string
	Store    Store
	// Tracks resolves IDs for [Engine.SelectTrackByID]. Optional.
	Tracks TrackLookup
	// Questions overrides the question cache built from Store.
	Questions *QuestionCache
	// Minimum is the number of permanent slots and the readiness threshold.
	Minimum           int
	EligibilityWindow time.Duration
	QuestionTTL       time.Duration
	Logger            *log.Logger
	// Events receives an [Event] after each mutation. Sends never block.
	Events chan<- Event
	Now    func() time.Time
}

type slot struct {
	// op serializes operations on this slot, including their remote writes.
	op         sync.Mutex
	questionID string
	// reserved holds the question a filled slot is moving away from until the move settles.
	reserved   string
	track      *models.Track
	state      models.SlotState
	err        string
}

// Engine owns one player's slots for the duration of a session.
type Engine struct {
	mu     sync.Mutex
	slots  []*slot
	closed bool
	// busy counts operations that hold or wait on a slot lock.
	busy   int

	playerID  string
	store     Store
	tracks    TrackLookup
	questions *QuestionCache
	minimum   int
	window    time.Duration
	logger    *log.Logger
	events    chan<- Event
	now       func() time.Time
}

// NewEngine creates an engine with Minimum empty permanent slots. Call [Engine.Load] to
// hydrate it from the store.
func NewEngine(opts Options) (*Engine, error) {
	if opts.PlayerID == "" {
		return nil, fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: answer store", shared.ErrMissingArgument)
	}
	if opts.Minimum < 1 {
		return nil, fmt.Errorf("%w: minimum must be at least 1", shared.ErrInvalidArgument)
	}
	if opts.EligibilityWindow <= 0 {
		opts.EligibilityWindow = DefaultEligibilityWindow
	}
	if opts.Questions == nil {
		opts.Questions = NewQuestionCache(opts.Store, opts.QuestionTTL)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		playerID:  opts.PlayerID,
		store:     opts.Store,
		tracks:    opts.Tracks,
		questions: opts.Questions,
		minimum:   opts.Minimum,
		window:    opts.EligibilityWindow,
		logger:    shared.WithLogger(opts.Logger, "player", opts.PlayerID),
		events:    opts.Events,
		now:       opts.Now,
	}
	for range opts.Minimum {
		e.slots = append(e.slots, &slot{})
	}
	return e, nil
}

// Load replaces the slots with the player's stored answers.
//
// It fails with [shared.ErrSlotBusy] while any slot operation is in flight. Answers are
// placed in question display order. The list is padded to the minimum and
// permanent slots without a question receive the first unused active questions.
func (e *Engine) Load(ctx context.Context) error {
	qs, err := e.questions.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading questions: %w", err)
	}
	stored, err := e.store.GetPlayerAnswers(ctx, e.playerID)
	if err != nil {
		return fmt.Errorf("loading answers: %w", err)
	}

	order := make(map[string]int, len(qs))
	for i, q := range qs {
		order[q.ID] = i
	}

	answered := make([]models.Answer, 0, len(stored))
	for _, a := range stored {
		if _, ok := order[a.QuestionID]; !ok {
			e.logger.Warn("skipping answer to inactive question", "question", a.QuestionID)
			continue
		}
		answered = append(answered, a)
	}
	slices.SortFunc(answered, func(a, b models.Answer) int { return order[a.QuestionID] - order[b.QuestionID] })

	used := make(map[string]bool, len(answered))
	slots := make([]*slot, 0, max(len(answered), e.minimum))
	for _, a := range answered {
		t := a.Track
		slots = append(slots, &slot{questionID: a.QuestionID, track: &t, state: models.SlotFilled})
		used[a.QuestionID] = true
	}
	for len(slots) < e.minimum {
		slots = append(slots, &slot{})
	}

	next := 0
	for i := 0; i < e.minimum; i++ {
		if slots[i].questionID != "" {
			continue
		}
		for next < len(qs) && used[qs[next].ID] {
			next++
		}
		if next == len(qs) {
			break
		}
		slots[i].questionID = qs[next].ID
		used[qs[next].ID] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return shared.ErrSessionClosed
	}
	if e.busy > 0 {
		return fmt.Errorf("%w: %d operations in flight", shared.ErrSlotBusy, e.busy)
	}
	e.slots = slots
	e.emitLocked(EventLoaded, nil, nil)
	e.logger.Debug("slots loaded", "slots", len(slots), "answers", len(answered))
	return nil
}

// Slots returns a snapshot of every slot.
func (e *Engine) Slots() []models.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Slot returns a snapshot of the slot at index.
func (e *Engine) Slot(index int) (models.Slot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.slots) {
		return models.Slot{}, fmt.Errorf("%w: %d", shared.ErrSlotNotFound, index)
	}
	return e.viewLocked(index, e.slots[index]), nil
}

// Readiness evaluates the current slots against the minimum.
func (e *Engine) Readiness() Status {
	return Readiness(e.Slots(), e.minimum)
}

// RemoteReady asks the store whether the player's persisted answers meet the minimum.
func (e *Engine) RemoteReady(ctx context.Context) (bool, error) {
	return e.store.IsReady(ctx, e.playerID)
}

// Questions returns the active questions in display order.
func (e *Engine) Questions(ctx context.Context) ([]models.Question, error) {
	return e.questions.Get(ctx)
}

// Minimum is the number of permanent slots.
func (e *Engine) Minimum() int {
	return e.minimum
}

// Close ends the session. Writes still in flight complete remotely but no longer change slots.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// AddSlot appends an empty slot and returns its index.
func (e *Engine) AddSlot() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, shared.ErrSessionClosed
	}

	s := &slot{}
	e.slots = append(e.slots, s)
	index := len(e.slots) - 1
	e.emitLocked(EventSlotAdded, s, nil)
	return index, nil
}

// SelectTrack sets the slot's track and persists it.
//
// The slot needs a question. Unless override is set the track must be released within
// the eligibility window. If the write fails the slot returns to its previous track and
// the error wraps [shared.ErrStoreWriteFailed].
func (e *Engine) SelectTrack(ctx context.Context, index int, track models.Track, override bool) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	s, err := e.acquire(index)
	if err != nil {
		return err
	}
	defer e.release(s)

	e.mu.Lock()
	if err := e.liveLocked(s); err != nil {
		e.mu.Unlock()
		return err
	}
	if s.questionID == "" {
		err := e.failLocked(s, fmt.Errorf("%w: slot %d", shared.ErrNoQuestionAssigned, index))
		e.mu.Unlock()
		return err
	}
	if !override {
		if err := CheckEligibility(track, e.now(), e.window); err != nil {
			err = e.failLocked(s, err)
			e.mu.Unlock()
			return err
		}
	}

	prevTrack, prevState := s.track, s.state
	questionID := s.questionID
	selected := track
	s.track = &selected
	s.state = models.SlotPending
	s.err = ""
	e.emitLocked(EventPending, s, nil)
	e.mu.Unlock()

	werr := e.store.SaveAnswer(ctx, e.playerID, questionID, track)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.liveLocked(s); err != nil {
		return err
	}
	if werr != nil {
		s.track, s.state = prevTrack, prevState
		e.logger.Warn("answer not saved, rolled back", "question", questionID, "track", track.ID, "err", werr)
		return e.failLocked(s, fmt.Errorf("%w: %v", shared.ErrStoreWriteFailed, werr))
	}

	s.state = models.SlotFilled
	e.emitLocked(EventSaved, s, nil)
	e.logger.Debug("answer saved", "question", questionID, "track", track.ID)
	return nil
}

// SelectTrackByID looks the track up in the catalog, then calls [Engine.SelectTrack].
func (e *Engine) SelectTrackByID(ctx context.Context, index int, trackID string, override bool) error {
	if e.tracks == nil {
		return fmt.Errorf("%w: no track lookup configured", shared.ErrInvalidInput)
	}

	track, err := e.tracks.Track(ctx, trackID)
	if err != nil {
		e.annotate(index, err)
		return err
	}
	return e.SelectTrack(ctx, index, *track, override)
}

// ChangeQuestion assigns questionID to the slot.
//
// A question held by another slot is rejected with [shared.ErrDuplicateQuestion]. A slot
// without a track changes locally. A filled slot moves its answer: the old answer is
// deleted and the track saved under the new question. If that save fails the old answer
// is written back before the error is returned.
func (e *Engine) ChangeQuestion(ctx context.Context, index int, questionID string) error {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return fmt.Errorf("%w: question id", shared.ErrMissingArgument)
	}

	qs, err := e.questions.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading questions: %w", err)
	}
	if !slices.ContainsFunc(qs, func(q models.Question) bool { return q.ID == questionID }) {
		return fmt.Errorf("%w: unknown question %s", shared.ErrInvalidArgument, questionID)
	}

	s, err := e.acquire(index)
	if err != nil {
		return err
	}
	defer e.release(s)

	e.mu.Lock()
	if err := e.liveLocked(s); err != nil {
		e.mu.Unlock()
		return err
	}
	if s.questionID == questionID {
		e.mu.Unlock()
		return nil
	}
	for _, other := range e.slots {
		if other != s && (other.questionID == questionID || other.reserved == questionID) {
			err := e.failLocked(s, fmt.Errorf("%w: %s", shared.ErrDuplicateQuestion, questionID))
			e.mu.Unlock()
			return err
		}
	}

	oldQuestion := s.questionID
	s.questionID = questionID
	s.err = ""
	if s.track == nil {
		e.emitLocked(EventQuestionChanged, s, nil)
		e.mu.Unlock()
		return nil
	}

	track := *s.track
	s.reserved = oldQuestion
	s.state = models.SlotPending
	e.emitLocked(EventPending, s, nil)
	e.mu.Unlock()

	if derr := e.store.DeleteAnswer(ctx, e.playerID, oldQuestion); derr != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		s.reserved = ""
		if err := e.liveLocked(s); err != nil {
			return err
		}
		s.questionID = oldQuestion
		s.state = models.SlotFilled
		return e.failLocked(s, fmt.Errorf("%w: %v", shared.ErrStoreWriteFailed, derr))
	}

	if serr := e.store.SaveAnswer(ctx, e.playerID, questionID, track); serr != nil {
		cerr := e.store.SaveAnswer(context.WithoutCancel(ctx), e.playerID, oldQuestion, track)

		e.mu.Lock()
		defer e.mu.Unlock()
		s.reserved = ""
		if err := e.liveLocked(s); err != nil {
			return err
		}
		s.questionID = oldQuestion
		if cerr != nil {
			s.track = nil
			s.state = models.SlotEmpty
			e.logger.Error("answer lost while changing question", "from", oldQuestion, "to", questionID, "err", cerr)
			return e.failLocked(s, fmt.Errorf("%w: %v; restoring previous answer: %v", shared.ErrStoreWriteFailed, serr, cerr))
		}
		s.state = models.SlotFilled
		return e.failLocked(s, fmt.Errorf("%w: %v", shared.ErrStoreWriteFailed, serr))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s.reserved = ""
	if err := e.liveLocked(s); err != nil {
		return err
	}
	s.state = models.SlotFilled
	e.emitLocked(EventQuestionChanged, s, nil)
	return nil
}

// RemoveSlot deletes a non-permanent slot and its stored answer.
//
// The slot is kept when the delete fails.
func (e *Engine) RemoveSlot(ctx context.Context, index int) error {
	if index >= 0 && index < e.minimum {
		return fmt.Errorf("%w: slot %d", shared.ErrPermanentSlot, index)
	}

	s, err := e.acquire(index)
	if err != nil {
		return err
	}
	defer e.release(s)

	e.mu.Lock()
	if err := e.liveLocked(s); err != nil {
		e.mu.Unlock()
		return err
	}

	if s.track != nil {
		questionID := s.questionID
		prevState := s.state
		s.state = models.SlotPending
		s.err = ""
		e.emitLocked(EventPending, s, nil)
		e.mu.Unlock()

		derr := e.store.DeleteAnswer(ctx, e.playerID, questionID)

		e.mu.Lock()
		if err := e.liveLocked(s); err != nil {
			e.mu.Unlock()
			return err
		}
		if derr != nil {
			s.state = prevState
			err := e.failLocked(s, fmt.Errorf("%w: %v", shared.ErrStoreWriteFailed, derr))
			e.mu.Unlock()
			return err
		}
	}
	defer e.mu.Unlock()

	at := e.indexLocked(s)
	removed := e.viewLocked(at, s)
	e.slots = slices.Delete(e.slots, at, at+1)
	e.publishLocked(Event{Kind: EventSlotRemoved, Index: at, Slot: removed})
	return nil
}

// acquire looks up the slot at index and takes its operation lock.
func (e *Engine) acquire(index int) (*slot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, shared.ErrSessionClosed
	}
	if index < 0 || index >= len(e.slots) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", shared.ErrSlotNotFound, index)
	}
	s := e.slots[index]
	e.busy++
	e.mu.Unlock()

	s.op.Lock()
	return s, nil
}

// release drops the operation lock taken by acquire.
func (e *Engine) release(s *slot) {
	s.op.Unlock()
	e.mu.Lock()
	e.busy--
	e.mu.Unlock()
}

// liveLocked reports whether results for s may still be applied.
func (e *Engine) liveLocked(s *slot) error {
	if e.closed {
		return shared.ErrSessionClosed
	}
	if e.indexLocked(s) < 0 {
		return shared.ErrSlotNotFound
	}
	return nil
}

func (e *Engine) indexLocked(s *slot) int {
	return slices.Index(e.slots, s)
}

// failLocked attaches err to the slot and publishes it.
func (e *Engine) failLocked(s *slot, err error) error {
	s.err = err.Error()
	e.emitLocked(EventFailed, s, err)
	return err
}

// annotate attaches an error that happened before any slot state changed.
func (e *Engine) annotate(index int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || index < 0 || index >= len(e.slots) {
		return
	}
	e.failLocked(e.slots[index], err)
}

func (e *Engine) viewLocked(index int, s *slot) models.Slot {
	v := models.Slot{
		Index:      index,
		QuestionID: s.questionID,
		State:      s.state,
		Permanent:  index < e.minimum,
		Err:        s.err,
	}
	if s.track != nil {
		t := *s.track
		t.Artists = slices.Clone(t.Artists)
		v.Track = &t
	}
	return v
}

func (e *Engine) snapshotLocked() []models.Slot {
	out := make([]models.Slot, len(e.slots))
	for i, s := range e.slots {
		out[i] = e.viewLocked(i, s)
	}
	return out
}

// emitLocked publishes an event for s, or for the whole list when s is nil.
func (e *Engine) emitLocked(kind EventKind, s *slot, err error) {
	if e.events == nil {
		return
	}
	ev := Event{Kind: kind, Index: -1, Err: err}
	if s != nil {
		if ev.Index = e.indexLocked(s); ev.Index >= 0 {
			ev.Slot = e.viewLocked(ev.Index, s)
		}
	}
	e.publishLocked(ev)
}

func (e *Engine) publishLocked(ev Event) {
	if e.events == nil || e.closed {
		return
	}
	ev.Readiness = Readiness(e.snapshotLocked(), e.minimum)
	sendEvent(e.events, ev)
}

// IsSlotError reports whether err is one of the per-slot answer errors.
func IsSlotError(err error) bool {
	for _, target := range []error{
		shared.ErrTrackNotEligible,
		shared.ErrDuplicateQuestion,
		shared.ErrNoQuestionAssigned,
		shared.ErrStoreWriteFailed,
		shared.ErrPermanentSlot,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
