package qobject

import "context"

// Subscriber identifies a unit of reactive work, such as a component render
// or an effect. Any comparable value works; pointers are typical. The
// package never looks inside a Subscriber.
type Subscriber any

// Phase names what the active unit of work is doing.
type Phase string

const (
	PhaseNone   Phase = ""
	PhaseRender Phase = "render"
	PhaseEvent  Phase = "event"
	PhaseEffect Phase = "effect"
)

// Invocation exposes the unit of work in progress. It is supplied by the
// consumer; the Container only queries it.
type Invocation interface {
	// ActiveSubscriber returns the Subscriber reads should be attributed to,
	// or nil when reads are untracked.
	ActiveSubscriber() Subscriber

	// ActivePhase returns the phase of the active unit of work.
	ActivePhase() Phase

	// Context returns the context.Context of the active unit of work.
	Context() context.Context
}

// Frame is one entry of a Stack.
type Frame struct {
	Subscriber Subscriber
	Phase      Phase
	Ctx        context.Context
}

// Stack is a push/pop Invocation for single-threaded consumers.
// The zero value is ready to use.
type Stack struct {
	frames []Frame
}

// NewStack creates an empty Stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push makes f the active frame and returns a function that restores the
// previous one. The returned function is safe to call more than once.
func (s *Stack) Push(f Frame) (pop func()) {
	depth := len(s.frames)
	s.frames = append(s.frames, f)
	return func() {
		if len(s.frames) > depth {
			s.frames = s.frames[:depth]
		}
	}
}

// Run executes fn with f as the active frame. The previous frame is restored
// when fn returns, fails or panics.
//
// Example:
//
//	err := stack.Run(qobject.Frame{Subscriber: comp, Phase: qobject.PhaseRender}, func() error {
//	    title, err := state.Get("title")
//	    ...
//	})
func (s *Stack) Run(f Frame, fn func() error) error {
	pop := s.Push(f)
	defer pop()
	return fn()
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int {
	return len(s.frames)
}

func (s *Stack) top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// ActiveSubscriber implements Invocation.
func (s *Stack) ActiveSubscriber() Subscriber {
	f, _ := s.top()
	return f.Subscriber
}

// ActivePhase implements Invocation.
func (s *Stack) ActivePhase() Phase {
	f, _ := s.top()
	return f.Phase
}

// Context implements Invocation. Frames without a context report
// context.Background().
func (s *Stack) Context() context.Context {
	if f, ok := s.top(); ok && f.Ctx != nil {
		return f.Ctx
	}
	return context.Background()
}
