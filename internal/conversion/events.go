package conversion

import "context"

// Event is an input to Workflow.Handle: either a user action or the result of
// a Task.
type Event interface {
	event()
}

// User actions.
type (
	SelectWaybill struct{ Index int }
	ConfirmDetail struct{}
	EditQuantity  struct {
		Index int
		Raw   string
	}
	GoBack struct{}
	Submit struct{}
	Cancel struct{}
)

// Task results.
type (
	LoansLoaded     struct{ Result PendingLoans }
	LoadFailed      struct{ Err error }
	SubmitSucceeded struct{ DocID string }
	SubmitFailed    struct{ Err error }
)

func (SelectWaybill) event()   {}
func (ConfirmDetail) event()   {}
func (EditQuantity) event()    {}
func (GoBack) event()          {}
func (Submit) event()          {}
func (Cancel) event()          {}
func (LoansLoaded) event()     {}
func (LoadFailed) event()      {}
func (SubmitSucceeded) event() {}
func (SubmitFailed) event()    {}

// Task is a pending remote call. It must not touch workflow state; its
// returned Event is handed back to Handle.
type Task func(ctx context.Context) Event

// Drive runs t and every task it leads to on the calling goroutine until the
// workflow stops asking for remote work.
func Drive(ctx context.Context, w *Workflow, t Task) {
	for t != nil {
		t = w.Handle(t(ctx))
	}
}
