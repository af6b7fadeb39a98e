package conversion

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	pending   PendingLoans
	fetchErr  error
	docID     string
	createErr error

	fetchCalls  int
	createCalls int
	lastParent  string
	lastLoan    string
	lastLines   []ConversionLine
}

func (g *fakeGateway) FetchPendingLoanWaybills(_ context.Context, parentDocID string) (PendingLoans, error) {
	g.fetchCalls++
	g.lastParent = parentDocID
	if g.fetchErr != nil {
		return PendingLoans{}, g.fetchErr
	}
	return g.pending, nil
}

func (g *fakeGateway) CreateConversionDocument(_ context.Context, parentDocID, loanWaybillID string, lines []ConversionLine) (string, error) {
	g.createCalls++
	g.lastParent = parentDocID
	g.lastLoan = loanWaybillID
	g.lastLines = lines
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.docID, nil
}

type recorder struct {
	notices []Notice
	navs    []string
}

func (r *recorder) Notify(n Notice) { r.notices = append(r.notices, n) }

func (r *recorder) Navigate(doctype, name string) { r.navs = append(r.navs, doctype+"/"+name) }

func (r *recorder) last() Notice {
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openOrder() ParentDoc {
	return ParentDoc{ID: "SAL-ORD-2026-00012", Customer: "Mulago Hospital", DocStatus: DocStatusSubmitted, PerDelivered: qty("40")}
}

func oneLineLoan(max string) PendingLoans {
	return PendingLoans{
		Customer:    "Mulago Hospital",
		ParentDocID: "SAL-ORD-2026-00012",
		LoanWaybills: []LoanWaybillSummary{{
			ID:       "LW-0007",
			LoanDate: "2026-09-01",
			Items: []LoanLineItem{{
				ItemCode:          "GLOVE-M",
				Description:       "Nitrile gloves, medium",
				BatchNo:           "B-221",
				ExpiryDate:        "2027-03-31",
				Warehouse:         "Mulago Consignment - NBS",
				QtySupplied:       qty("10"),
				QtyConverted:      qty("2"),
				QtyRemaining:      qty("8"),
				SORemaining:       qty(max),
				MaxConvertibleQty: qty(max),
				SourceLineRef:     "ste-detail-1",
			}},
		}},
	}
}

func twoLineLoan() PendingLoans {
	p := oneLineLoan("5")
	p.LoanWaybills[0].Items = append(p.LoanWaybills[0].Items, LoanLineItem{
		ItemCode:          "SYR-5ML",
		SerialNo:          "SN-900",
		Warehouse:         "Mulago Consignment - NBS",
		QtySupplied:       qty("4"),
		QtyConverted:      qty("0"),
		QtyRemaining:      qty("4"),
		SORemaining:       qty("3"),
		MaxConvertibleQty: qty("3"),
		SourceLineRef:     "ste-detail-2",
	})
	return p
}

// toCapture starts a workflow and walks it to StageQuantityCapture.
func toCapture(t *testing.T, gw *fakeGateway, rec *recorder) *Workflow {
	t.Helper()
	w := NewWorkflow(openOrder(), gw, rec, rec)
	Drive(context.Background(), w, w.Start())
	require.Equal(t, StageListShown, w.State().Stage)
	require.Nil(t, w.Handle(SelectWaybill{Index: 0}))
	require.Equal(t, StageDetailShown, w.State().Stage)
	require.Nil(t, w.Handle(ConfirmDetail{}))
	require.Equal(t, StageQuantityCapture, w.State().Stage)
	return w
}

func TestScenarioNoPendingLoans(t *testing.T) {
	gw := &fakeGateway{pending: PendingLoans{Customer: "Mulago Hospital", ParentDocID: "SAL-ORD-2026-00012"}}
	rec := &recorder{}
	w := NewWorkflow(openOrder(), gw, rec, rec)

	Drive(context.Background(), w, w.Start())

	st := w.State()
	assert.Equal(t, StageClosed, st.Stage)
	assert.Equal(t, OutcomeNothingPending, st.Outcome)
	assert.Equal(t, 1, gw.fetchCalls)
	require.Len(t, rec.notices, 1)
	assert.True(t, rec.notices[0].Blocking)
	assert.Contains(t, rec.notices[0].Message, "no pending loan waybills")
	assert.Empty(t, rec.navs)

	assert.Nil(t, w.Handle(SelectWaybill{Index: 0}))
	assert.Equal(t, StageClosed, w.State().Stage)
}

func TestScenarioClampAboveMaxThenSubmit(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5"), docID: "MAT-DN-2026-00031"}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	assert.Nil(t, w.Handle(EditQuantity{Index: 0, Raw: "7"}))
	assert.Equal(t, "5", w.State().Lines[0].RequestedQty.String())
	warn := rec.last()
	assert.Equal(t, SeverityWarning, warn.Severity)
	assert.False(t, warn.Blocking)
	assert.Contains(t, warn.Message, "GLOVE-M")

	task := w.Handle(Submit{})
	require.NotNil(t, task)
	assert.Equal(t, StageSubmitting, w.State().Stage)
	Drive(context.Background(), w, task)

	assert.Equal(t, 1, gw.createCalls)
	require.Len(t, gw.lastLines, 1)
	assert.Equal(t, "5", gw.lastLines[0].Qty.String())
	assert.Equal(t, "LW-0007", gw.lastLoan)
	assert.Equal(t, "SAL-ORD-2026-00012", gw.lastParent)
	assert.Equal(t, OutcomeSuccess, w.State().Outcome)
}

func TestScenarioNegativeExcludedFromPayload(t *testing.T) {
	gw := &fakeGateway{pending: twoLineLoan(), docID: "MAT-DN-2026-00032"}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	w.Handle(EditQuantity{Index: 0, Raw: "-3"})
	w.Handle(EditQuantity{Index: 1, Raw: "2"})
	assert.True(t, w.State().Lines[0].RequestedQty.IsZero())
	for _, n := range rec.notices {
		assert.NotEqual(t, SeverityWarning, n.Severity, "negative input must not warn")
	}

	Drive(context.Background(), w, w.Handle(Submit{}))

	require.Len(t, gw.lastLines, 1)
	assert.Equal(t, "SYR-5ML", gw.lastLines[0].ItemCode)
	assert.Equal(t, "SN-900", gw.lastLines[0].SerialNo)
	assert.Equal(t, "ste-detail-2", gw.lastLines[0].SourceLineRef)
}

func TestScenarioSubmitFailureKeepsQuantities(t *testing.T) {
	gw := &fakeGateway{pending: twoLineLoan(), createErr: errors.New("insufficient stock")}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	w.Handle(EditQuantity{Index: 0, Raw: "4"})
	w.Handle(EditQuantity{Index: 1, Raw: "1.5"})
	Drive(context.Background(), w, w.Handle(Submit{}))

	st := w.State()
	assert.Equal(t, StageQuantityCapture, st.Stage)
	assert.Equal(t, "4", st.Lines[0].RequestedQty.String())
	assert.Equal(t, "1.5", st.Lines[1].RequestedQty.String())
	assert.Equal(t, "insufficient stock", st.LastError)

	n := rec.last()
	assert.Equal(t, SeverityError, n.Severity)
	assert.True(t, n.Blocking)
	assert.Equal(t, "insufficient stock", n.Message)
	assert.Empty(t, rec.navs)

	// retry after the server recovers
	gw.createErr = nil
	gw.docID = "MAT-DN-2026-00040"
	Drive(context.Background(), w, w.Handle(Submit{}))
	assert.Equal(t, OutcomeSuccess, w.State().Outcome)
	assert.Equal(t, 2, gw.createCalls)
}

func TestScenarioSuccessNavigatesOnce(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5"), docID: "MAT-DN-2026-00033"}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	w.Handle(EditQuantity{Index: 0, Raw: "3"})
	task := w.Handle(Submit{})
	require.NotNil(t, task)
	ev := task(context.Background())
	w.Handle(ev)
	// a duplicated result must not navigate again
	w.Handle(ev)

	st := w.State()
	assert.Equal(t, StageClosed, st.Stage)
	assert.Equal(t, OutcomeSuccess, st.Outcome)
	assert.Equal(t, "MAT-DN-2026-00033", st.NewDocID)
	assert.Equal(t, []string{"Delivery Note/MAT-DN-2026-00033"}, rec.navs)
}

func TestSubmitAllZeroNeverCallsGateway(t *testing.T) {
	gw := &fakeGateway{pending: twoLineLoan(), docID: "X"}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	w.Handle(EditQuantity{Index: 0, Raw: "0"})
	w.Handle(EditQuantity{Index: 1, Raw: "-1"})

	assert.Nil(t, w.Handle(Submit{}))
	assert.Equal(t, StageQuantityCapture, w.State().Stage)
	assert.Equal(t, 0, gw.createCalls)
	assert.True(t, rec.last().Blocking)
	assert.Equal(t, ErrNoPositiveQuantity.Error(), w.State().LastError)
}

func TestCancelRejectedWhileSubmitting(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5"), docID: "MAT-DN-2026-00034"}
	rec := &recorder{}
	w := toCapture(t, gw, rec)

	w.Handle(EditQuantity{Index: 0, Raw: "1"})
	task := w.Handle(Submit{})
	require.NotNil(t, task)

	assert.Nil(t, w.Handle(Cancel{}))
	assert.Equal(t, StageSubmitting, w.State().Stage)
	assert.Nil(t, w.Handle(EditQuantity{Index: 0, Raw: "4"}))
	assert.Equal(t, "1", w.State().Lines[0].RequestedQty.String())
	assert.Nil(t, w.Handle(Submit{}))

	w.Handle(task(context.Background()))
	assert.Equal(t, OutcomeSuccess, w.State().Outcome)
	assert.Equal(t, 1, gw.createCalls)
}

func TestCancelFromInteractiveStages(t *testing.T) {
	stages := map[string]func(w *Workflow){
		"list":       func(w *Workflow) {},
		"detail":     func(w *Workflow) { w.Handle(SelectWaybill{Index: 0}) },
		"quantities": func(w *Workflow) { w.Handle(SelectWaybill{Index: 0}); w.Handle(ConfirmDetail{}) },
	}
	for name, walk := range stages {
		t.Run(name, func(t *testing.T) {
			gw := &fakeGateway{pending: oneLineLoan("5")}
			w := NewWorkflow(openOrder(), gw, nil, nil)
			Drive(context.Background(), w, w.Start())
			walk(w)

			assert.Nil(t, w.Handle(Cancel{}))
			assert.Equal(t, StageClosed, w.State().Stage)
			assert.Equal(t, OutcomeCancelled, w.State().Outcome)
			assert.Equal(t, 0, gw.createCalls)
		})
	}
}

func TestCancelWhileLoadingIgnoresLateResult(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5")}
	w := NewWorkflow(openOrder(), gw, nil, nil)

	task := w.Start()
	require.NotNil(t, task)
	assert.Equal(t, StageLoading, w.State().Stage)
	w.Handle(Cancel{})

	w.Handle(task(context.Background()))
	assert.Equal(t, OutcomeCancelled, w.State().Outcome)
	assert.Empty(t, w.State().Waybills)
}

func TestLoadFailureReported(t *testing.T) {
	gw := &fakeGateway{fetchErr: errors.New("Sales Order is required")}
	rec := &recorder{}
	w := NewWorkflow(openOrder(), gw, rec, rec)

	Drive(context.Background(), w, w.Start())

	assert.Equal(t, OutcomeLoadFailed, w.State().Outcome)
	assert.Equal(t, "Sales Order is required", rec.last().Message)
	assert.Equal(t, SeverityError, rec.last().Severity)
}

func TestStartRequiresConvertibleOrder(t *testing.T) {
	tests := []struct {
		name   string
		parent ParentDoc
	}{
		{name: "draft", parent: ParentDoc{ID: "SO-1", DocStatus: DocStatusDraft, PerDelivered: qty("0")}},
		{name: "cancelled", parent: ParentDoc{ID: "SO-2", DocStatus: DocStatusCancelled, PerDelivered: qty("0")}},
		{name: "fully delivered", parent: ParentDoc{ID: "SO-3", DocStatus: DocStatusSubmitted, PerDelivered: qty("100")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			rec := &recorder{}
			w := NewWorkflow(tt.parent, gw, rec, rec)

			assert.Nil(t, w.Start())
			assert.True(t, w.Closed())
			assert.Equal(t, 0, gw.fetchCalls)
			assert.True(t, rec.last().Blocking)
		})
	}
}

func TestGoBackTransitions(t *testing.T) {
	gw := &fakeGateway{pending: twoLineLoan()}
	w := toCapture(t, gw, &recorder{})

	w.Handle(EditQuantity{Index: 1, Raw: "2"})
	w.Handle(GoBack{})
	assert.Equal(t, StageDetailShown, w.State().Stage)
	assert.Equal(t, "2", w.State().Lines[1].RequestedQty.String())

	w.Handle(ConfirmDetail{})
	assert.Equal(t, "2", w.State().Lines[1].RequestedQty.String())

	w.Handle(GoBack{})
	w.Handle(GoBack{})
	st := w.State()
	assert.Equal(t, StageListShown, st.Stage)
	assert.Equal(t, -1, st.Selected)
	assert.Nil(t, st.Lines)
}

func TestUnrecognizedEventsAreNoOps(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5")}
	w := NewWorkflow(openOrder(), gw, nil, nil)
	Drive(context.Background(), w, w.Start())

	before := w.State()
	assert.Nil(t, w.Handle(ConfirmDetail{}))
	assert.Nil(t, w.Handle(EditQuantity{Index: 0, Raw: "1"}))
	assert.Nil(t, w.Handle(Submit{}))
	assert.Nil(t, w.Handle(SelectWaybill{Index: 3}))
	assert.Nil(t, w.Handle(SubmitSucceeded{DocID: "X"}))
	assert.Equal(t, before, w.State())

	w.Handle(SelectWaybill{Index: 0})
	w.Handle(ConfirmDetail{})
	assert.Nil(t, w.Handle(EditQuantity{Index: 9, Raw: "1"}))
	assert.True(t, w.State().Lines[0].RequestedQty.IsZero())
}

func TestStateCopyIsolated(t *testing.T) {
	gw := &fakeGateway{pending: oneLineLoan("5")}
	w := toCapture(t, gw, &recorder{})

	st := w.State()
	st.Lines[0].RequestedQty = qty("4")
	assert.True(t, w.State().Lines[0].RequestedQty.IsZero())
}
