package episode

import (
	"fmt"
	"sync"
	"time"

	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
)

// TraceLogger defines a simple tracing interface
type TraceLogger interface {
	Trace(message string)
	Error(message string, err error)
}

type nilTracer struct{}

func (nilTracer) Trace(message string)            {}
func (nilTracer) Error(message string, err error) {}

// edge is an installed transition, resolved to chapter identifiers.
type edge struct {
	From  episode.ChapterID
	Event episode.EventKind
	To    episode.ChapterID
}

// StateMachine holds the episode graph and the current chapter pointer. The
// graph is installed once and is immutable afterwards, the only moving part
// is the pointer, which only moves through Advance.
type StateMachine struct {
	mu          sync.RWMutex
	transitions map[episode.ChapterID]map[episode.EventKind]*edge
	chapters    map[episode.ChapterID]episode.Chapter
	order       []episode.ChapterID
	edges       []episode.Transition
	initial     episode.ChapterID
	installed   bool

	// Internal state
	current         episode.ChapterID
	stateStartTime  time.Time
	transitionCount uint64
	listeners       []episode.TransitionListener

	traceLogger TraceLogger
}

// NewStateMachine creates an empty chapter state machine. Install must be
// called before any other operation is meaningful.
func NewStateMachine(traceLogger TraceLogger) *StateMachine {
	if traceLogger == nil {
		traceLogger = nilTracer{}
	}
	return &StateMachine{
		transitions: make(map[episode.ChapterID]map[episode.EventKind]*edge),
		chapters:    make(map[episode.ChapterID]episode.Chapter),
		listeners:   make([]episode.TransitionListener, 0),
		traceLogger: traceLogger,
	}
}

// Install validates and installs the episode graph, placing the pointer on
// the initial chapter. It may be called only once.
func (sm *StateMachine) Install(ep episode.Episode) error {
	sm.traceLogger.Trace("enter install")
	defer sm.traceLogger.Trace("exit install")
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.installed {
		return errors.Wrap(episode.ErrAlreadyInstalled, "install")
	}

	if err := sm.load(ep); err != nil {
		return errors.Wrap(err, "install")
	}

	sm.current = sm.initial
	sm.stateStartTime = time.Now()
	sm.transitionCount = 0
	return nil
}

// Restore installs the episode graph and places the pointer on an arbitrary
// installed chapter, used when loading a persisted episode.
func (sm *StateMachine) Restore(
	ep episode.Episode,
	current episode.ChapterID,
	transitionCount uint64,
) error {
	sm.traceLogger.Trace("enter restore")
	defer sm.traceLogger.Trace("exit restore")
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.installed {
		return errors.Wrap(episode.ErrAlreadyInstalled, "restore")
	}

	if err := sm.load(ep); err != nil {
		return errors.Wrap(err, "restore")
	}

	if _, ok := sm.chapters[current]; !ok {
		sm.reset()
		return errors.Wrap(
			errors.Wrapf(
				episode.ErrInvalidEpisode,
				"unknown current chapter %s",
				current.Hex(),
			),
			"restore",
		)
	}

	sm.current = current
	sm.stateStartTime = time.Now()
	sm.transitionCount = transitionCount
	return nil
}

// load validates ep and fills the graph. Callers hold the lock.
func (sm *StateMachine) load(ep episode.Episode) error {
	if err := Validate(ep); err != nil {
		return err
	}

	for _, c := range ep.Chapters {
		sm.chapters[c.ID()] = c.Clone()
		sm.order = append(sm.order, c.ID())
	}

	// Helper to add transition
	addTransition := func(
		from episode.ChapterID,
		event episode.EventKind,
		to episode.ChapterID,
	) {
		if sm.transitions[from] == nil {
			sm.transitions[from] = make(map[episode.EventKind]*edge)
		}
		sm.transitions[from][event] = &edge{
			From:  from,
			Event: event,
			To:    to,
		}
	}

	for _, t := range ep.Transitions {
		addTransition(episode.LabelID(t.From), t.Event, episode.LabelID(t.To))
	}

	sm.edges = append([]episode.Transition(nil), ep.Transitions...)
	sm.initial = episode.LabelID(ep.Initial)
	sm.installed = true
	return nil
}

func (sm *StateMachine) reset() {
	sm.transitions = make(map[episode.ChapterID]map[episode.EventKind]*edge)
	sm.chapters = make(map[episode.ChapterID]episode.Chapter)
	sm.order = nil
	sm.edges = nil
	sm.initial = episode.ChapterID{}
	sm.installed = false
}

// Installed reports whether an episode has been installed.
func (sm *StateMachine) Installed() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.installed
}

// CurrentChapter returns the active chapter.
func (sm *StateMachine) CurrentChapter() (episode.Chapter, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.installed {
		return episode.Chapter{}, episode.ErrNotInstalled
	}
	return sm.chapters[sm.current].Clone(), nil
}

// CurrentChapterID returns the identifier of the active chapter, the zero
// hash before installation.
func (sm *StateMachine) CurrentChapterID() episode.ChapterID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Chapter looks up an installed chapter.
func (sm *StateMachine) Chapter(id episode.ChapterID) (episode.Chapter, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	c, ok := sm.chapters[id]
	return c.Clone(), ok
}

// Chapters returns the installed chapters in installation order.
func (sm *StateMachine) Chapters() []episode.Chapter {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	chapters := make([]episode.Chapter, 0, len(sm.order))
	for _, id := range sm.order {
		chapters = append(chapters, sm.chapters[id].Clone())
	}
	return chapters
}

// Episode returns the installed episode definition.
func (sm *StateMachine) Episode() episode.Episode {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ep := episode.Episode{
		Chapters:    make([]episode.Chapter, 0, len(sm.order)),
		Transitions: append([]episode.Transition(nil), sm.edges...),
	}
	for _, id := range sm.order {
		ep.Chapters = append(ep.Chapters, sm.chapters[id].Clone())
	}
	if sm.installed {
		ep.Initial = sm.chapters[sm.initial].Label
	}
	return ep
}

// IsFinalChapter reports whether the active chapter concludes the episode.
func (sm *StateMachine) IsFinalChapter() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.installed && sm.chapters[sm.current].IsConclusion
}

// Next returns the chapter event would lead to from the active chapter.
func (sm *StateMachine) Next(
	event episode.EventKind,
) (episode.ChapterID, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	t, ok := sm.transitions[sm.current][event]
	if !ok {
		return episode.ChapterID{}, false
	}
	return t.To, true
}

// Advance follows the transition labelled event out of the active chapter.
func (sm *StateMachine) Advance(
	event episode.EventKind,
) (episode.ChapterID, episode.ChapterID, error) {
	sm.traceLogger.Trace(fmt.Sprintf("enter advance: %s", event))
	defer sm.traceLogger.Trace(fmt.Sprintf("exit advance: %s", event))
	sm.mu.Lock()

	if !sm.installed {
		sm.mu.Unlock()
		return episode.ChapterID{}, episode.ChapterID{}, errors.Wrap(
			episode.ErrNotInstalled,
			"advance",
		)
	}

	from := sm.current
	transition, exists := sm.transitions[from][event]
	if !exists {
		label := sm.chapters[from].Label
		sm.mu.Unlock()

		return episode.ChapterID{}, episode.ChapterID{}, errors.Wrap(
			errors.Wrapf(
				episode.ErrNoSuchTransition,
				"no transition for event %s in chapter %q",
				event,
				label,
			),
			"advance",
		)
	}

	sm.current = transition.To
	sm.stateStartTime = time.Now()
	sm.transitionCount++

	// Notify listeners
	listeners := append([]episode.TransitionListener(nil), sm.listeners...)
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener.OnTransition(from, transition.To, event)
	}

	return from, transition.To, nil
}

// GetStateTime returns how long the active chapter has been current.
func (sm *StateMachine) GetStateTime() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateStartTime)
}

func (sm *StateMachine) GetTransitionCount() uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.transitionCount
}

func (sm *StateMachine) AddListener(listener episode.TransitionListener) {
	sm.traceLogger.Trace("enter addlistener")
	defer sm.traceLogger.Trace("exit addlistener")
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

var _ episode.ChapterSource = (*StateMachine)(nil)
