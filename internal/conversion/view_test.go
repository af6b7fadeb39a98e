package conversion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFollowsStages(t *testing.T) {
	gw := &fakeGateway{pending: twoLineLoan(), docID: "MAT-DN-2026-00050"}
	w := NewWorkflow(openOrder(), gw, nil, nil)

	task := w.Start()
	vm := Render(w.State())
	assert.Equal(t, StageLoading, vm.Stage)
	assert.True(t, vm.CanCancel)
	assert.Equal(t, "Mulago Hospital", vm.Customer)

	Drive(context.Background(), w, task)
	vm = Render(w.State())
	require.Len(t, vm.Waybills, 1)
	assert.Equal(t, WaybillRow{ID: "LW-0007", LoanDate: "2026-09-01", Lines: 2, MaxConvertible: "8"}, vm.Waybills[0])
	assert.Empty(t, vm.Lines)

	w.Handle(SelectWaybill{Index: 0})
	vm = Render(w.State())
	assert.Equal(t, "LW-0007", vm.Waybill)
	require.Len(t, vm.Lines, 2)
	assert.Equal(t, "B-221", vm.Lines[0].BatchNo)
	assert.Equal(t, "5", vm.Lines[0].Max)
	assert.False(t, vm.InputEnabled)
	assert.True(t, vm.CanGoBack)

	w.Handle(ConfirmDetail{})
	vm = Render(w.State())
	assert.True(t, vm.InputEnabled)
	assert.False(t, vm.CanSubmit)

	w.Handle(EditQuantity{Index: 1, Raw: "2"})
	vm = Render(w.State())
	assert.True(t, vm.CanSubmit)
	assert.Equal(t, "2", vm.Lines[1].Requested)
	assert.True(t, vm.Lines[1].Included)
	assert.False(t, vm.Lines[0].Included)
	assert.Equal(t, "2", vm.TotalRequested)
	assert.Equal(t, 1, vm.PositiveLines)

	task = w.Handle(Submit{})
	vm = Render(w.State())
	assert.False(t, vm.InputEnabled)
	assert.False(t, vm.CanCancel)
	assert.False(t, vm.CanSubmit)

	w.Handle(task(context.Background()))
	vm = Render(w.State())
	assert.Equal(t, OutcomeSuccess, vm.Outcome)
	assert.Equal(t, "MAT-DN-2026-00050", vm.NewDocID)
}

func TestBuildSubmissionCarriesLoanFields(t *testing.T) {
	s := newState(openOrder())
	s.Waybills = twoLineLoan().LoanWaybills
	s.selectWaybill(0)
	s.Lines[0].RequestedQty = qty("5")
	s.Lines[1].RequestedQty = qty("0")

	sub, err := BuildSubmission(s)
	require.NoError(t, err)
	assert.Equal(t, "SAL-ORD-2026-00012", sub.ParentDocID)
	assert.Equal(t, "LW-0007", sub.LoanWaybillID)
	require.Len(t, sub.Lines, 1)
	assert.Equal(t, ConversionLine{
		ItemCode:      "GLOVE-M",
		Qty:           qty("5"),
		BatchNo:       "B-221",
		Warehouse:     "Mulago Consignment - NBS",
		ExpiryDate:    "2027-03-31",
		SourceLineRef: "ste-detail-1",
	}, sub.Lines[0])
}

func TestBuildSubmissionErrors(t *testing.T) {
	s := newState(openOrder())
	_, err := BuildSubmission(s)
	assert.Error(t, err)

	s.Waybills = oneLineLoan("5").LoanWaybills
	s.selectWaybill(0)
	_, err = BuildSubmission(s)
	assert.ErrorIs(t, err, ErrNoPositiveQuantity)
}
