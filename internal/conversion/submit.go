package conversion

import (
	"context"
	"fmt"
)

// Submission is the payload for creating a Delivery Note from a loan.
type Submission struct {
	ParentDocID   string
	LoanWaybillID string
	Lines         []ConversionLine
}

// BuildSubmission collects the lines with a positive requested quantity, in
// line order, carrying batch, serial, warehouse and expiry over from the loan
// line they were requested against.
func BuildSubmission(s State) (Submission, error) {
	wb, ok := s.SelectedWaybill()
	if !ok {
		return Submission{}, fmt.Errorf("no loan waybill selected")
	}
	if len(s.Lines) != len(wb.Items) {
		return Submission{}, fmt.Errorf("loan waybill %s: %d request lines for %d items", wb.ID, len(s.Lines), len(wb.Items))
	}

	sub := Submission{ParentDocID: s.Parent.ID, LoanWaybillID: wb.ID}
	for i, l := range s.Lines {
		if !l.RequestedQty.IsPositive() {
			continue
		}
		it := wb.Items[i]
		sub.Lines = append(sub.Lines, ConversionLine{
			ItemCode:      l.ItemCode,
			Qty:           l.RequestedQty,
			BatchNo:       it.BatchNo,
			SerialNo:      it.SerialNo,
			Warehouse:     it.Warehouse,
			ExpiryDate:    it.ExpiryDate,
			SourceLineRef: l.SourceLineRef,
		})
	}
	if len(sub.Lines) == 0 {
		return Submission{}, ErrNoPositiveQuantity
	}
	return sub, nil
}

// submit freezes the capture stage and returns the creation task. An
// all-zero request is rejected here and never reaches the gateway.
func (w *Workflow) submit() Task {
	if !HasAnyPositiveQuantity(w.state.Lines) {
		w.state.LastError = ErrNoPositiveQuantity.Error()
		w.emit(Notice{Severity: SeverityWarning, Message: ErrNoPositiveQuantity.Error(), Blocking: true})
		w.log.Debug("submit rejected", "reason", "no positive quantity")
		return nil
	}
	sub, err := BuildSubmission(w.state)
	if err != nil {
		w.state.LastError = err.Error()
		w.emit(Notice{Severity: SeverityError, Message: err.Error(), Blocking: true})
		return nil
	}
	w.transition("submit", func() {
		w.state.LastError = ""
		w.state.Stage = StageSubmitting
	})
	return submitTask(w.gw, sub)
}

func submitTask(gw Gateway, sub Submission) Task {
	return func(ctx context.Context) Event {
		name, err := gw.CreateConversionDocument(ctx, sub.ParentDocID, sub.LoanWaybillID, sub.Lines)
		if err != nil {
			return SubmitFailed{Err: err}
		}
		return SubmitSucceeded{DocID: name}
	}
}
