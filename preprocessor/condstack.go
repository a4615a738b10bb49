package preprocessor

// branchState is a single frame of the conditional-compilation stack: one
// #if/#ifdef/#ifndef and the #elif/#else groups that follow it.
type branchState int

const (
	// stateEmitting names the state outside any #if (an empty stack), where
	// content always passes through; no frame is ever pushed with it.
	stateEmitting branchState = iota
	// stateEmittingAfterBranch is held by a real frame whose currently
	// active group (the #if, or a later #elif, that tested true) is being
	// emitted. Its own #else/#elif must skip the remainder of the group,
	// which is exactly what distinguishes it from the virtual root.
	stateEmittingAfterBranch
	// stateSkippingWaitingForTrue is a frame where no group has matched yet
	// and a later #elif/#else is still eligible to start emitting.
	stateSkippingWaitingForTrue
	// stateSkippingToEnd is a frame where a group already matched earlier
	// (so #else/#elif must not re-trigger) and the rest is skipped outright.
	stateSkippingToEnd
	// stateSkippingNested is pushed for a nested #if/#ifdef/#ifndef
	// encountered while an enclosing frame is not emitting; its own
	// #else/#elif/#endif are tracked but never change the active-output
	// decision, which remains governed by the enclosing frame.
	stateSkippingNested
)

type condFrame struct {
	state branchState
}

// condStack implements the conditional-compilation state machine (spec
// 4.4): a stack of frames, one per nested #if. Active() reports whether
// content at the current position should reach the expander/output.
//
// The spec's own state table has an internal tension: the "emitting" row's
// nested-#if columns mirror "emitting-after-branch", yet their own
// #else/#elif columns diverge, and a couple of the listed transitions land
// back on "emitting" rather than "emitting-after-branch". This
// implementation resolves it the only way that keeps #else/#elif correct
// for every nesting depth: "emitting" is reserved for the virtual pre-#if
// state, and any real frame that starts emitting -- whether from its #if or
// from a later #elif -- immediately becomes stateEmittingAfterBranch, so its
// own subsequent #else/#elif correctly skip the rest of the group. See
// DESIGN.md.
type condStack struct {
	frames []condFrame
}

func newCondStack() *condStack {
	return &condStack{}
}

// Active reports whether content should currently be emitted: true if the
// root has no open frames, or if every open frame is in an emitting state.
func (c *condStack) Active() bool {
	for _, f := range c.frames {
		if f.state != stateEmittingAfterBranch {
			return false
		}
	}
	return true
}

func (c *condStack) Empty() bool { return len(c.frames) == 0 }

// NeedsElifEval reports whether an upcoming #elif's condition actually needs
// evaluating: only true when the innermost frame is still waiting for its
// first true group, matching the real-world behavior of never evaluating
// (and thus never macro-expanding or side-effecting on) an #elif that
// trails an already-resolved #if/#elif chain or sits inside a skipped
// enclosing region.
func (c *condStack) NeedsElifEval() bool {
	if len(c.frames) == 0 {
		return false
	}
	return c.frames[len(c.frames)-1].state == stateSkippingWaitingForTrue
}

// PushIf opens a new frame for #if/#ifdef/#ifndef, given whether the
// enclosing context is currently active and whether this condition tested
// true.
func (c *condStack) PushIf(cond bool) {
	if !c.Active() {
		c.frames = append(c.frames, condFrame{state: stateSkippingNested})
		return
	}
	if cond {
		c.frames = append(c.frames, condFrame{state: stateEmittingAfterBranch})
	} else {
		c.frames = append(c.frames, condFrame{state: stateSkippingWaitingForTrue})
	}
}

// Elif handles #elif cond for the innermost frame.
func (c *condStack) Elif(cond bool) error {
	if len(c.frames) == 0 {
		return errUnmatchedElse
	}
	top := &c.frames[len(c.frames)-1]
	switch top.state {
	case stateSkippingNested:
		// enclosing frame isn't active; nothing changes here regardless of
		// the nested group's own true/false branches.
	case stateSkippingWaitingForTrue:
		if cond {
			top.state = stateEmittingAfterBranch
		}
	case stateEmittingAfterBranch, stateSkippingToEnd:
		top.state = stateSkippingToEnd
	}
	return nil
}

// Else handles #else for the innermost frame.
func (c *condStack) Else() error {
	if len(c.frames) == 0 {
		return errUnmatchedElse
	}
	top := &c.frames[len(c.frames)-1]
	switch top.state {
	case stateSkippingNested:
	case stateSkippingWaitingForTrue:
		top.state = stateEmittingAfterBranch
	case stateEmittingAfterBranch, stateSkippingToEnd:
		top.state = stateSkippingToEnd
	}
	return nil
}

// Endif pops the innermost frame.
func (c *condStack) Endif() error {
	if len(c.frames) == 0 {
		return errUnmatchedElse
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

type condStackError string

func (e condStackError) Error() string { return string(e) }

const errUnmatchedElse condStackError = "#else/#elif/#endif without matching #if"
