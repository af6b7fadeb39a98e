// Package conversion implements the loan-to-delivery-note conversion workflow:
// picking a pending Loan Waybill for a Sales Order, capturing per-line
// conversion quantities and submitting them for Delivery Note creation.
//
// The package holds no I/O. Remote calls are described as Tasks that the
// caller executes (as a bubbletea command or synchronously) and whose result
// is fed back into the Workflow as an Event.
package conversion

import (
	"github.com/shopspring/decimal"
)

// Sales Order document status values as stored by Frappe.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)

// DeliveryNoteDoctype is where a successful conversion navigates to.
const DeliveryNoteDoctype = "Delivery Note"

var hundred = decimal.NewFromInt(100)

// ParentDoc is the snapshot of the Sales Order the workflow runs against.
type ParentDoc struct {
	ID           string
	Customer     string
	Status       string
	DocStatus    int
	PerDelivered decimal.Decimal
}

// ConversionAvailable reports whether loans may be converted against the
// order: it must be submitted and not fully delivered.
func (p ParentDoc) ConversionAvailable() bool {
	return p.DocStatus == DocStatusSubmitted && p.PerDelivered.LessThan(hundred)
}

// LoanLineItem is one batch balance row of a Loan Waybill that matches an
// item on the Sales Order.
type LoanLineItem struct {
	ItemCode          string
	Description       string
	BatchNo           string
	SerialNo          string
	ExpiryDate        string
	Warehouse         string
	QtySupplied       decimal.Decimal
	QtyConverted      decimal.Decimal
	QtyRemaining      decimal.Decimal
	SORemaining       decimal.Decimal
	MaxConvertibleQty decimal.Decimal
	StockEntry        string
	// SourceLineRef is the stock entry detail row the balance was loaned on.
	SourceLineRef string
}

// LoanWaybillSummary is a pending Loan Waybill with its convertible lines.
type LoanWaybillSummary struct {
	ID       string
	LoanDate string
	Items    []LoanLineItem
}

// TotalMaxConvertible sums MaxConvertibleQty over all lines.
func (w LoanWaybillSummary) TotalMaxConvertible() decimal.Decimal {
	total := decimal.Zero
	for _, it := range w.Items {
		total = total.Add(it.MaxConvertibleQty)
	}
	return total
}

// PendingLoans is the gateway's answer for one Sales Order.
type PendingLoans struct {
	Customer     string
	ParentDocID  string
	LoanWaybills []LoanWaybillSummary
}

// ConversionRequestLine is the user's requested quantity for one line item.
type ConversionRequestLine struct {
	ItemCode      string
	RequestedQty  decimal.Decimal
	SourceLineRef string
}

// ConversionLine is one row of the creation payload.
type ConversionLine struct {
	ItemCode      string
	Qty           decimal.Decimal
	BatchNo       string
	SerialNo      string
	Warehouse     string
	ExpiryDate    string
	SourceLineRef string
}
