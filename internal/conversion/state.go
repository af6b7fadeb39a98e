package conversion

import (
	"github.com/shopspring/decimal"
)

// Stage is the dialog the workflow is currently showing.
type Stage int

const (
	StageEmpty Stage = iota
	StageLoading
	StageListShown
	StageDetailShown
	StageQuantityCapture
	StageSubmitting
	StageClosed
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageLoading:
		return "loading"
	case StageListShown:
		return "list"
	case StageDetailShown:
		return "detail"
	case StageQuantityCapture:
		return "quantities"
	case StageSubmitting:
		return "submitting"
	case StageClosed:
		return "closed"
	}
	return "unknown"
}

// Interactive reports whether the stage accepts user input.
func (s Stage) Interactive() bool {
	return s == StageListShown || s == StageDetailShown || s == StageQuantityCapture
}

// Outcome records why a workflow closed.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeCancelled
	OutcomeNothingPending
	OutcomeLoadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNothingPending:
		return "nothing-pending"
	case OutcomeLoadFailed:
		return "load-failed"
	}
	return "none"
}

// State is everything one open conversion dialog sequence knows. The zero
// value is not usable; see NewWorkflow.
type State struct {
	Stage   Stage
	Outcome Outcome
	Parent  ParentDoc

	Customer string
	Waybills []LoanWaybillSummary

	// Selected is the index into Waybills, or -1.
	Selected int
	Lines    []ConversionRequestLine

	// LastError is the most recent message shown for a failed remote call
	// or rejected submit, cleared on the next successful transition.
	LastError string
	NewDocID  string
}

func newState(parent ParentDoc) State {
	return State{Stage: StageEmpty, Parent: parent, Selected: -1}
}

// SelectedWaybill returns the waybill the user picked.
func (s State) SelectedWaybill() (LoanWaybillSummary, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Waybills) {
		return LoanWaybillSummary{}, false
	}
	return s.Waybills[s.Selected], true
}

// TotalRequested sums the requested quantities of all lines.
func (s State) TotalRequested() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.RequestedQty)
	}
	return total
}

// PositiveLines counts lines that will be submitted.
func (s State) PositiveLines() int {
	n := 0
	for _, l := range s.Lines {
		if l.RequestedQty.IsPositive() {
			n++
		}
	}
	return n
}

// selectWaybill builds one zeroed request line per line item.
func (s *State) selectWaybill(idx int) {
	s.Selected = idx
	w := s.Waybills[idx]
	s.Lines = make([]ConversionRequestLine, len(w.Items))
	for i, it := range w.Items {
		s.Lines[i] = ConversionRequestLine{
			ItemCode:      it.ItemCode,
			RequestedQty:  decimal.Zero,
			SourceLineRef: it.SourceLineRef,
		}
	}
}

func (s *State) clearSelection() {
	s.Selected = -1
	s.Lines = nil
}

func (s *State) close(o Outcome) {
	s.Stage = StageClosed
	s.Outcome = o
}

func (s State) clone() State {
	c := s
	if s.Lines != nil {
		c.Lines = append([]ConversionRequestLine(nil), s.Lines...)
	}
	return c
}
