package conversion

// WaybillRow is one entry of the pending loans list.
type WaybillRow struct {
	ID             string
	LoanDate       string
	Lines          int
	MaxConvertible string
}

// LineRow is one loan line as shown in the detail and quantity dialogs.
type LineRow struct {
	ItemCode    string
	Description string
	BatchNo     string
	SerialNo    string
	ExpiryDate  string
	Warehouse   string
	Supplied    string
	Converted   string
	Remaining   string
	SORemaining string
	Max         string
	Requested   string
	Included    bool
}

// ViewModel is everything a presentation layer needs to draw the workflow.
type ViewModel struct {
	Stage    Stage
	Outcome  Outcome
	Title    string
	ParentID string
	Customer string

	Waybills []WaybillRow
	Waybill  string
	LoanDate string
	Lines    []LineRow

	TotalRequested string
	PositiveLines  int

	InputEnabled bool
	CanSubmit    bool
	CanGoBack    bool
	CanCancel    bool

	Error    string
	NewDocID string
}

// Render projects s into a ViewModel. It has no side effects.
func Render(s State) ViewModel {
	vm := ViewModel{
		Stage:    s.Stage,
		Outcome:  s.Outcome,
		ParentID: s.Parent.ID,
		Customer: s.Customer,
		Error:    s.LastError,
		NewDocID: s.NewDocID,
	}
	if vm.Customer == "" {
		vm.Customer = s.Parent.Customer
	}

	switch s.Stage {
	case StageEmpty, StageLoading:
		vm.Title = "Loading pending loans"
		vm.CanCancel = true
	case StageListShown:
		vm.Title = "Pending Loan Waybills"
		vm.CanCancel = true
		vm.Waybills = make([]WaybillRow, len(s.Waybills))
		for i, w := range s.Waybills {
			vm.Waybills[i] = WaybillRow{
				ID:             w.ID,
				LoanDate:       w.LoanDate,
				Lines:          len(w.Items),
				MaxConvertible: w.TotalMaxConvertible().String(),
			}
		}
	case StageDetailShown:
		vm.Title = "Loan Waybill"
		vm.CanCancel = true
		vm.CanGoBack = true
	case StageQuantityCapture:
		vm.Title = "Convert Quantities"
		vm.CanCancel = true
		vm.CanGoBack = true
		vm.InputEnabled = true
		vm.CanSubmit = HasAnyPositiveQuantity(s.Lines)
	case StageSubmitting:
		vm.Title = "Creating Delivery Note"
	case StageClosed:
		vm.Title = "Loan Conversion"
	}

	if wb, ok := s.SelectedWaybill(); ok {
		vm.Waybill = wb.ID
		vm.LoanDate = wb.LoanDate
		vm.Lines = make([]LineRow, len(wb.Items))
		for i, it := range wb.Items {
			row := LineRow{
				ItemCode:    it.ItemCode,
				Description: it.Description,
				BatchNo:     it.BatchNo,
				SerialNo:    it.SerialNo,
				ExpiryDate:  it.ExpiryDate,
				Warehouse:   it.Warehouse,
				Supplied:    it.QtySupplied.String(),
				Converted:   it.QtyConverted.String(),
				Remaining:   it.QtyRemaining.String(),
				SORemaining: it.SORemaining.String(),
				Max:         it.MaxConvertibleQty.String(),
				Requested:   "0",
			}
			if i < len(s.Lines) {
				row.Requested = s.Lines[i].RequestedQty.String()
				row.Included = s.Lines[i].RequestedQty.IsPositive()
			}
			vm.Lines[i] = row
		}
		vm.TotalRequested = s.TotalRequested().String()
		vm.PositiveLines = s.PositiveLines()
	}

	return vm
}
