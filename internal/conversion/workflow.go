package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrNotConvertible     = errors.New("sales order must be submitted and not fully delivered")
	ErrNoPendingLoans     = errors.New("no pending loan waybills for this sales order")
	ErrNoPositiveQuantity = errors.New("enter a quantity greater than zero for at least one item")
)

// Workflow drives one conversion dialog sequence for one Sales Order. It is
// not safe for concurrent use; the TUI calls it from its update loop only.
type Workflow struct {
	id     string
	state  State
	gw     Gateway
	notify Notifier
	nav    Navigator
	log    *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger used for transition tracing.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWorkflow returns a workflow in StageEmpty for parent.
func NewWorkflow(parent ParentDoc, gw Gateway, notify Notifier, nav Navigator, opts ...Option) *Workflow {
	w := &Workflow{
		id:     uuid.NewString(),
		state:  newState(parent),
		gw:     gw,
		notify: notify,
		nav:    nav,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("session", w.id, "sales_order", parent.ID)
	return w
}

// ID identifies the session in logs.
func (w *Workflow) ID() string { return w.id }

// State returns a copy of the current state.
func (w *Workflow) State() State { return w.state.clone() }

// Closed reports whether the workflow has finished.
func (w *Workflow) Closed() bool { return w.state.Stage == StageClosed }

// Start begins the sequence by fetching pending loans. It returns nil if the
// workflow was already started or the order is not convertible.
func (w *Workflow) Start() Task {
	if w.state.Stage != StageEmpty {
		return nil
	}
	if !w.state.Parent.ConversionAvailable() {
		w.state.LastError = ErrNotConvertible.Error()
		w.emit(Notice{Severity: SeverityWarning, Message: fmt.Sprintf("Sales Order %s: %s", w.state.Parent.ID, ErrNotConvertible), Blocking: true})
		w.transition("start", func() { w.state.close(OutcomeCancelled) })
		return nil
	}
	w.transition("start", func() { w.state.Stage = StageLoading })
	return w.fetchTask()
}

// Handle applies ev to the current stage. Events that do not apply to the
// current stage are ignored. The returned task, if any, must be run and its
// result passed back to Handle.
func (w *Workflow) Handle(ev Event) Task {
	switch w.state.Stage {
	case StageLoading:
		return w.handleLoading(ev)
	case StageListShown:
		return w.handleList(ev)
	case StageDetailShown:
		return w.handleDetail(ev)
	case StageQuantityCapture:
		return w.handleCapture(ev)
	case StageSubmitting:
		return w.handleSubmitting(ev)
	case StageEmpty:
		if _, ok := ev.(Cancel); ok {
			w.transition("cancel", func() { w.state.close(OutcomeCancelled) })
			return nil
		}
	}
	return w.ignore(ev)
}

func (w *Workflow) handleLoading(ev Event) Task {
	switch e := ev.(type) {
	case LoansLoaded:
		if len(e.Result.LoanWaybills) == 0 {
			msg := fmt.Sprintf("Sales Order %s: %s", w.state.Parent.ID, ErrNoPendingLoans)
			w.emit(Notice{Severity: SeverityNeutral, Message: msg, Blocking: true})
			w.transition("loaded", func() {
				w.state.LastError = msg
				w.state.close(OutcomeNothingPending)
			})
			return nil
		}
		w.transition("loaded", func() {
			w.state.Customer = e.Result.Customer
			w.state.Waybills = e.Result.LoanWaybills
			w.state.Stage = StageListShown
		})
	case LoadFailed:
		msg := errMessage(e.Err)
		w.log.Warn("fetch pending loans failed", "error", msg)
		w.emit(Notice{Severity: SeverityError, Message: msg, Blocking: true})
		w.transition("load-failed", func() {
			w.state.LastError = msg
			w.state.close(OutcomeLoadFailed)
		})
	case Cancel:
		w.transition("cancel", func() { w.state.close(OutcomeCancelled) })
	default:
		return w.ignore(ev)
	}
	return nil
}

func (w *Workflow) handleList(ev Event) Task {
	switch e := ev.(type) {
	case SelectWaybill:
		if e.Index < 0 || e.Index >= len(w.state.Waybills) {
			return w.ignore(ev)
		}
		w.transition("select", func() {
			w.state.selectWaybill(e.Index)
			w.state.LastError = ""
			w.state.Stage = StageDetailShown
		})
	case Cancel:
		w.transition("cancel", func() { w.state.close(OutcomeCancelled) })
	default:
		return w.ignore(ev)
	}
	return nil
}

func (w *Workflow) handleDetail(ev Event) Task {
	switch ev.(type) {
	case ConfirmDetail:
		w.transition("confirm", func() { w.state.Stage = StageQuantityCapture })
	case GoBack:
		w.transition("back", func() {
			w.state.clearSelection()
			w.state.Stage = StageListShown
		})
	case Cancel:
		w.transition("cancel", func() { w.state.close(OutcomeCancelled) })
	default:
		return w.ignore(ev)
	}
	return nil
}

func (w *Workflow) handleCapture(ev Event) Task {
	switch e := ev.(type) {
	case EditQuantity:
		w.editQuantity(e)
	case GoBack:
		w.transition("back", func() { w.state.Stage = StageDetailShown })
	case Submit:
		return w.submit()
	case Cancel:
		w.transition("cancel", func() { w.state.close(OutcomeCancelled) })
	default:
		return w.ignore(ev)
	}
	return nil
}

func (w *Workflow) handleSubmitting(ev Event) Task {
	switch e := ev.(type) {
	case SubmitSucceeded:
		w.transition("submitted", func() {
			w.state.NewDocID = e.DocID
			w.state.LastError = ""
			w.state.close(OutcomeSuccess)
		})
		w.emit(Notice{Severity: SeveritySuccess, Message: fmt.Sprintf("%s %s created from %s", DeliveryNoteDoctype, e.DocID, w.selectedID())})
		if w.nav != nil {
			w.nav.Navigate(DeliveryNoteDoctype, e.DocID)
		}
	case SubmitFailed:
		msg := errMessage(e.Err)
		w.log.Warn("create delivery note failed", "error", msg)
		w.transition("submit-failed", func() {
			w.state.LastError = msg
			w.state.Stage = StageQuantityCapture
		})
		w.emit(Notice{Severity: SeverityError, Message: msg, Blocking: true})
	case Cancel:
		w.log.Debug("cancel rejected while submitting")
	default:
		return w.ignore(ev)
	}
	return nil
}

func (w *Workflow) editQuantity(e EditQuantity) {
	wb, ok := w.state.SelectedWaybill()
	if !ok || e.Index < 0 || e.Index >= len(w.state.Lines) || e.Index >= len(wb.Items) {
		w.ignore(e)
		return
	}
	item := wb.Items[e.Index]
	qty, clamped := ClampInput(e.Raw, item.MaxConvertibleQty)
	w.state.Lines[e.Index].RequestedQty = qty
	w.state.LastError = ""
	if clamped {
		w.emit(Notice{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Quantity for %s cannot exceed %s; set to %s", item.ItemCode, item.MaxConvertibleQty, qty),
		})
	}
}

func (w *Workflow) selectedID() string {
	if wb, ok := w.state.SelectedWaybill(); ok {
		return wb.ID
	}
	return ""
}

func (w *Workflow) emit(n Notice) {
	if w.notify != nil {
		w.notify.Notify(n)
	}
}

func (w *Workflow) transition(event string, apply func()) {
	from := w.state.Stage
	apply()
	w.log.Debug("transition", "event", event, "from", from, "to", w.state.Stage, "outcome", w.state.Outcome)
}

func (w *Workflow) ignore(ev Event) Task {
	w.log.Debug("event ignored", "event", fmt.Sprintf("%T", ev), "stage", w.state.Stage)
	return nil
}

func (w *Workflow) fetchTask() Task {
	gw := w.gw
	parentID := w.state.Parent.ID
	return func(ctx context.Context) Event {
		res, err := gw.FetchPendingLoanWaybills(ctx, parentID)
		if err != nil {
			return LoadFailed{Err: err}
		}
		return LoansLoaded{Result: res}
	}
}

// errMessage returns the text shown to the user for a remote failure.
func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
