package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/theramind/availability/internal/availability"
	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
)

// Phase is the controller's lifecycle state. Cancelled is transient and
// collapses straight back to Idle, so it never appears as an observable
// phase.
type Phase int

const (
	Idle Phase = iota
	Dragging
	PendingConfirmation
	Committing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case PendingConfirmation:
		return "pending_confirmation"
	case Committing:
		return "committing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Selection is one drag gesture over grid cells. Anchor is where the drag
// began; Current follows the pointer. DayIndices records every day offset
// touched, in traversal order, for multi-day drags.
type Selection struct {
	AnchorDay    int
	AnchorIndex  int
	CurrentDay   int
	CurrentIndex int
	DayIndices   []int
}

// Normalized returns the boundary span [start, end) of the selected cells.
// Drag direction never changes the result: end is always the exclusive
// boundary after the later of the two cell indices.
func (s Selection) Normalized() (startIndex, endIndex int) {
	if s.AnchorIndex <= s.CurrentIndex {
		return s.AnchorIndex, s.CurrentIndex + 1
	}
	return s.CurrentIndex, s.AnchorIndex + 1
}

// Contains reports whether a cell lies inside the selected range, for the
// presentation overlay.
func (s Selection) Contains(dayOffset, slotIndex int) bool {
	start, end := s.Normalized()
	if slotIndex < start || slotIndex >= end {
		return false
	}
	for _, d := range s.DayIndices {
		if d == dayOffset {
			return true
		}
	}
	return false
}

// Gateway persists committed selections. The HTTP client in
// internal/gateway implements it; tests substitute fakes.
type Gateway interface {
	CreateSlots(ctx context.Context, therapistID string, sessionType model.SessionType, timezone string, ranges []model.TimeRange) ([]model.Slot, error)
}

var ErrNoPendingSelection = errors.New("no selection awaiting confirmation")

// Controller is the drag-selection state machine:
//
//	Idle -> Dragging -> PendingConfirmation -> Committing -> Idle
//
// All transitions happen synchronously on the caller's goroutine; the only
// asynchronous boundary is the gateway call during Committing. Exactly one
// gesture is active at a time: pointer-down events are ignored unless the
// controller is Idle, so an in-flight commit can never be corrupted by a new
// drag.
type Controller struct {
	mu       sync.Mutex
	phase    Phase
	sel      Selection
	proposal *Proposal

	index       *grid.Index
	therapistID string
	sessionType model.SessionType
	gateway     Gateway
	logger      *slog.Logger
}

func NewController(ix *grid.Index, therapistID string, sessionType model.SessionType, gw Gateway, logger *slog.Logger) *Controller {
	return &Controller{
		index:       ix,
		therapistID: therapistID,
		sessionType: sessionType,
		gateway:     gw,
		logger:      logger,
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Active returns the live selection while a gesture or confirmation is in
// progress.
func (c *Controller) Active() (Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Idle {
		return Selection{}, false
	}
	return c.sel, true
}

// PointerDown begins a gesture on one cell. It reports false when ignored,
// which happens whenever a previous gesture has not reached Idle yet. An
// out-of-range cell index is a programmer error in the hit-testing layer and
// panics.
func (c *Controller) PointerDown(dayOffset, slotIndex int) bool {
	n := c.index.Granularity().SlotsPerDay()
	if slotIndex < 0 || slotIndex >= n {
		panic(fmt.Sprintf("selection: pointer down on cell %d outside [0, %d)", slotIndex, n))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Idle {
		return false
	}
	c.sel = Selection{
		AnchorDay:    dayOffset,
		AnchorIndex:  slotIndex,
		CurrentDay:   dayOffset,
		CurrentIndex: slotIndex,
		DayIndices:   []int{dayOffset},
	}
	c.phase = Dragging
	return true
}

// PointerMove extends the gesture to another cell. Days are accumulated in
// traversal order; contiguity is the hit-testing layer's concern, not the
// controller's. Ignored (false) outside the Dragging phase.
func (c *Controller) PointerMove(dayOffset, slotIndex int) bool {
	n := c.index.Granularity().SlotsPerDay()
	if slotIndex < 0 || slotIndex >= n {
		panic(fmt.Sprintf("selection: pointer move on cell %d outside [0, %d)", slotIndex, n))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return false
	}
	c.sel.CurrentDay = dayOffset
	c.sel.CurrentIndex = slotIndex
	seen := false
	for _, d := range c.sel.DayIndices {
		if d == dayOffset {
			seen = true
			break
		}
	}
	if !seen {
		c.sel.DayIndices = append(c.sel.DayIndices, dayOffset)
	}
	return true
}

// PointerUp finalizes the gesture. A legal selection moves the controller to
// PendingConfirmation and returns the proposal to present; an illegal one
// returns the legality error (ErrZeroLength, ErrPastTime, ErrOverlap via
// errors.Is) and the controller is Idle again. A pointer-up with no active
// drag returns (nil, nil).
func (c *Controller) PointerUp(existing []model.Slot, now time.Time) (*Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return nil, nil
	}
	start, end := c.sel.Normalized()
	if err := availability.Validate(c.index, c.sel.DayIndices, start, end, existing, c.sessionType, now); err != nil {
		c.reset()
		return nil, err
	}
	p := Describe(c.index, c.sel, c.therapistID, c.sessionType)
	c.proposal = &p
	c.phase = PendingConfirmation
	return &p, nil
}

// Confirm commits the pending selection through the gateway. On success the
// caller is expected to refresh the grid from the gateway; on failure the
// range is discarded and the user must re-drag, there is no automatic retry.
// Either way the controller returns to Idle.
func (c *Controller) Confirm(ctx context.Context) ([]model.Slot, error) {
	c.mu.Lock()
	if c.phase != PendingConfirmation {
		c.mu.Unlock()
		return nil, ErrNoPendingSelection
	}
	p := c.proposal
	c.phase = Committing
	c.mu.Unlock()

	created, err := c.gateway.CreateSlots(ctx, p.TherapistID, p.SessionType, p.Timezone, p.Ranges)

	c.mu.Lock()
	c.reset()
	c.mu.Unlock()

	if err != nil {
		if c.logger != nil {
			c.logger.Warn("slot commit failed", "therapist_id", p.TherapistID, "err", err)
		}
		return nil, err
	}
	return created, nil
}

// Cancel discards the gesture from Dragging or PendingConfirmation. It is a
// no-op while Idle or Committing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Dragging || c.phase == PendingConfirmation {
		c.reset()
	}
}

// reset requires c.mu held.
func (c *Controller) reset() {
	c.phase = Idle
	c.sel = Selection{}
	c.proposal = nil
}
