package erp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

// Server methods of the NBS customization app.
const (
	rpcPendingLoanWaybills = "nbs_customization.controllers.sales_order.get_pending_loan_waybills"
	rpcCreateDNFromLoan    = "nbs_customization.controllers.sales_order.create_delivery_note_from_loan"
)

type pendingLoansResponse struct {
	Customer     string            `json:"customer"`
	SalesOrder   string            `json:"sales_order"`
	LoanWaybills []loanWaybillJSON `json:"loan_waybills"`
}

type loanWaybillJSON struct {
	LoanWaybill string         `json:"loan_waybill"`
	LoanDate    string         `json:"loan_date"`
	Items       []loanLineJSON `json:"items"`
}

type loanLineJSON struct {
	ItemCode          string          `json:"item_code"`
	Description       string          `json:"description"`
	QtyLoaned         decimal.Decimal `json:"qty_loaned"`
	QtyConverted      decimal.Decimal `json:"qty_converted"`
	QtyRemaining      decimal.Decimal `json:"qty_remaining"`
	SOQtyRemaining    decimal.Decimal `json:"so_qty_remaining"`
	MaxConvertibleQty decimal.Decimal `json:"max_convertible_qty"`
	BatchNo           string          `json:"batch_no"`
	SerialNo          string          `json:"serial_no"`
	ExpiryDate        string          `json:"expiry_date"`
	Warehouse         string          `json:"warehouse"`
	StockEntry        string          `json:"stock_entry"`
	StockEntryDetail  string          `json:"stock_entry_detail"`
}

// conversionItemJSON is one row of create_delivery_note_from_loan's items.
// Empty batch and serial numbers are omitted so they match NULL balance rows.
type conversionItemJSON struct {
	ItemCode         string  `json:"item_code"`
	Qty              float64 `json:"qty"`
	BatchNo          string  `json:"batch_no,omitempty"`
	SerialNo         string  `json:"serial_no,omitempty"`
	Warehouse        string  `json:"warehouse,omitempty"`
	ExpiryDate       string  `json:"expiry_date,omitempty"`
	StockEntryDetail string  `json:"stock_entry_detail,omitempty"`
}

// FetchPendingLoanWaybills lists the customer's Loan Waybills that still
// hold balances for items on the Sales Order.
func (c *Client) FetchPendingLoanWaybills(ctx context.Context, salesOrder string) (conversion.PendingLoans, error) {
	var resp pendingLoansResponse
	params := url.Values{"sales_order": {salesOrder}}
	if err := c.Call(ctx, "GET", rpcPendingLoanWaybills, params, nil, &resp); err != nil {
		return conversion.PendingLoans{}, err
	}

	out := conversion.PendingLoans{
		Customer:     resp.Customer,
		ParentDocID:  resp.SalesOrder,
		LoanWaybills: make([]conversion.LoanWaybillSummary, 0, len(resp.LoanWaybills)),
	}
	if out.ParentDocID == "" {
		out.ParentDocID = salesOrder
	}
	for _, lw := range resp.LoanWaybills {
		summary := conversion.LoanWaybillSummary{ID: lw.LoanWaybill, LoanDate: lw.LoanDate}
		for _, it := range lw.Items {
			summary.Items = append(summary.Items, it.toLineItem())
		}
		out.LoanWaybills = append(out.LoanWaybills, summary)
	}

	c.Logger.Info("pending loans fetched", "sales_order", salesOrder, "waybills", len(out.LoanWaybills))
	return out, nil
}

func (it loanLineJSON) toLineItem() conversion.LoanLineItem {
	// The server already caps by sales order demand; never allow more than
	// the loan balance itself.
	maxQty, _ := conversion.ClampQuantity(it.MaxConvertibleQty, it.QtyRemaining)
	return conversion.LoanLineItem{
		ItemCode:          it.ItemCode,
		Description:       it.Description,
		BatchNo:           it.BatchNo,
		SerialNo:          it.SerialNo,
		ExpiryDate:        it.ExpiryDate,
		Warehouse:         it.Warehouse,
		QtySupplied:       it.QtyLoaned,
		QtyConverted:      it.QtyConverted,
		QtyRemaining:      it.QtyRemaining,
		SORemaining:       it.SOQtyRemaining,
		MaxConvertibleQty: maxQty,
		StockEntry:        it.StockEntry,
		SourceLineRef:     it.StockEntryDetail,
	}
}

// CreateConversionDocument creates a draft Delivery Note from the selected
// loan balances and returns its name. One attempt only.
func (c *Client) CreateConversionDocument(ctx context.Context, salesOrder, loanWaybill string, lines []conversion.ConversionLine) (string, error) {
	items := make([]conversionItemJSON, len(lines))
	for i, l := range lines {
		items[i] = conversionItemJSON{
			ItemCode:         l.ItemCode,
			Qty:              l.Qty.InexactFloat64(),
			BatchNo:          l.BatchNo,
			SerialNo:         l.SerialNo,
			Warehouse:        l.Warehouse,
			ExpiryDate:       l.ExpiryDate,
			StockEntryDetail: l.SourceLineRef,
		}
	}
	body := map[string]interface{}{
		"loan_waybill": loanWaybill,
		"sales_order":  salesOrder,
		"items":        items,
	}

	var name string
	if err := c.Call(ctx, "POST", rpcCreateDNFromLoan, nil, body, &name); err != nil {
		c.Logger.Warn("loan conversion rejected", "sales_order", salesOrder, "loan_waybill", loanWaybill, "error", err)
		return "", err
	}
	if name == "" {
		return "", &RemoteError{Message: "server did not return the new Delivery Note name"}
	}
	c.Logger.Info("loan converted", "sales_order", salesOrder, "loan_waybill", loanWaybill, "delivery_note", name, "lines", len(lines))
	return name, nil
}

// CmdLoans handles loan conversion commands
func (c *Client) CmdLoans(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: nbs-cli loans <subcommand> [args...]")
		fmt.Println("Subcommands: pending, list")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  nbs-cli loans pending SAL-ORD-2026-00012")
		fmt.Println("  nbs-cli loans list --customer=\"Mulago\" --status=Pending")
		return nil
	}

	switch args[0] {
	case "pending":
		if len(args) < 2 {
			return fmt.Errorf("usage: nbs-cli loans pending <sales_order>")
		}
		return c.loansPending(args[1])
	case "list":
		return c.loanWaybillList(parseLoanListOptions(args[1:]))
	default:
		return fmt.Errorf("unknown loans subcommand: %s", args[0])
	}
}

func (c *Client) loansPending(salesOrder string) error {
	fmt.Printf("%sFetching pending loan waybills for: %s%s\n", Blue, salesOrder, Reset)

	pending, err := c.FetchPendingLoanWaybills(context.Background(), salesOrder)
	if err != nil {
		return err
	}
	if len(pending.LoanWaybills) == 0 {
		fmt.Printf("%sNo pending loan waybills for %s%s\n", Yellow, salesOrder, Reset)
		return nil
	}

	fmt.Printf("\n%sCustomer: %s%s\n", Cyan, pending.Customer, Reset)
	for _, lw := range pending.LoanWaybills {
		fmt.Printf("\n  %s%s%s (loaned %s)\n", Yellow, lw.ID, Reset, lw.LoanDate)
		for i, it := range lw.Items {
			fmt.Printf("    %d. %s%s\n", i+1, it.ItemCode, lineRef(it))
			fmt.Printf("       Loaned: %s | Converted: %s | Remaining: %s | SO remaining: %s | Max: %s%s%s\n",
				FormatQty(it.QtySupplied), FormatQty(it.QtyConverted), FormatQty(it.QtyRemaining),
				FormatQty(it.SORemaining), Green, FormatQty(it.MaxConvertibleQty), Reset)
		}
	}
	return nil
}

// LoanListOptions filters ListLoanWaybills.
type LoanListOptions struct {
	Customer string
	Status   string
}

func parseLoanListOptions(args []string) LoanListOptions {
	opts := LoanListOptions{}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--customer=") {
			opts.Customer = strings.TrimPrefix(arg, "--customer=")
		}
		if strings.HasPrefix(arg, "--status=") {
			opts.Status = strings.TrimPrefix(arg, "--status=")
		}
	}
	return opts
}

// LoanWaybillRow is a Loan Waybill as listed from the resource API.
type LoanWaybillRow struct {
	Name             string
	Customer         string
	LoanDate         string
	ConversionStatus string
	Remaining        decimal.Decimal
}

// ListLoanWaybills lists submitted Loan Waybills, newest first.
func (c *Client) ListLoanWaybills(ctx context.Context, opts LoanListOptions) ([]LoanWaybillRow, error) {
	filters := [][]interface{}{{"docstatus", "=", conversion.DocStatusSubmitted}}
	if opts.Customer != "" {
		filters = append(filters, []interface{}{"customer", "like", fmt.Sprintf("%%%s%%", opts.Customer)})
	}
	if opts.Status != "" {
		filters = append(filters, []interface{}{"conversion_status", "=", opts.Status})
	}
	encoded, err := encodeFilters(filters)
	if err != nil {
		return nil, err
	}

	endpoint := "Loan%20Waybill?limit_page_length=0&fields=" + encodeFields("name", "customer", "loan_date", "conversion_status", "total_remaining_quantity") +
		"&order_by=loan_date%20desc&filters=" + encoded
	result, err := c.RequestContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rows []LoanWaybillRow
	if data, ok := result["data"].([]interface{}); ok {
		for _, item := range data {
			if m, ok := item.(map[string]interface{}); ok {
				rows = append(rows, LoanWaybillRow{
					Name:             str(m["name"]),
					Customer:         str(m["customer"]),
					LoanDate:         str(m["loan_date"]),
					ConversionStatus: str(m["conversion_status"]),
					Remaining:        num(m["total_remaining_quantity"]),
				})
			}
		}
	}
	return rows, nil
}

func (c *Client) loanWaybillList(opts LoanListOptions) error {
	fmt.Printf("%sFetching loan waybills...%s\n", Blue, Reset)

	rows, err := c.ListLoanWaybills(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo loan waybills found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sLoan Waybills (%d):%s\n", Cyan, len(rows), Reset)
	for _, r := range rows {
		statusColor := Yellow
		switch r.ConversionStatus {
		case "Fully Converted":
			statusColor = Green
		case "Cancelled":
			statusColor = Red
		}
		fmt.Printf("  %s - %s\n", r.Name, r.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Remaining: %s\n",
			r.LoanDate, statusColor, r.ConversionStatus, Reset, FormatQty(r.Remaining))
	}
	return nil
}

// CmdConvert converts loaned stock into a draft Delivery Note against a Sales
// Order, running the same workflow the TUI uses.
func (c *Client) CmdConvert(args []string) error {
	if len(args) < 3 {
		fmt.Println("Usage: nbs-cli convert <sales_order> <loan_waybill> <line>=<qty> [...] [--dry-run]")
		fmt.Println()
		fmt.Println("<line> is the 1-based line number shown by 'loans pending', or an item code.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  nbs-cli convert SAL-ORD-2026-00012 LW-0007 1=5 2=3")
		fmt.Println("  nbs-cli convert SAL-ORD-2026-00012 LW-0007 GLOVE-M=5 --dry-run")
		return nil
	}

	salesOrder, loanWaybill := args[0], args[1]
	var edits []string
	dryRun := false
	for _, a := range args[2:] {
		if a == "--dry-run" {
			dryRun = true
			continue
		}
		edits = append(edits, a)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	so, err := c.GetSalesOrder(ctx, salesOrder)
	if err != nil {
		return err
	}

	var failed bool
	notify := conversion.NotifierFunc(func(n conversion.Notice) {
		color := Cyan
		switch n.Severity {
		case conversion.SeverityWarning:
			color = Yellow
		case conversion.SeverityError:
			color = Red
			failed = true
		case conversion.SeveritySuccess:
			color = Green
		}
		fmt.Printf("%s%s%s\n", color, n.Message, Reset)
	})
	nav := conversion.NavigatorFunc(func(doctype, name string) {
		if doctype == conversion.DeliveryNoteDoctype {
			if err := c.dnGet(name); err != nil {
				fmt.Printf("%sError: %s%s\n", Red, err, Reset)
			}
		}
	})

	w := conversion.NewWorkflow(so.Parent(), c, notify, nav, conversion.WithLogger(c.Logger))
	conversion.Drive(ctx, w, w.Start())
	if w.Closed() {
		return workflowError(w.State())
	}

	st := w.State()
	idx := -1
	for i, lw := range st.Waybills {
		if lw.ID == loanWaybill {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("loan waybill %s has nothing convertible for %s", loanWaybill, salesOrder)
	}
	w.Handle(conversion.SelectWaybill{Index: idx})
	w.Handle(conversion.ConfirmDetail{})

	wb, _ := w.State().SelectedWaybill()
	for _, e := range edits {
		line, raw, err := parseLineEdit(e, wb)
		if err != nil {
			return err
		}
		w.Handle(conversion.EditQuantity{Index: line, Raw: raw})
	}

	if dryRun {
		sub, err := conversion.BuildSubmission(w.State())
		if err != nil {
			return err
		}
		fmt.Printf("\n%sWould create Delivery Note for %s from %s:%s\n", Cyan, sub.ParentDocID, sub.LoanWaybillID, Reset)
		for _, l := range sub.Lines {
			fmt.Printf("  - %s: %s%s\n", l.ItemCode, FormatQty(l.Qty), lineRef(conversion.LoanLineItem{BatchNo: l.BatchNo, SerialNo: l.SerialNo}))
		}
		w.Handle(conversion.Cancel{})
		return nil
	}

	conversion.Drive(ctx, w, w.Handle(conversion.Submit{}))
	if st := w.State(); st.Outcome != conversion.OutcomeSuccess {
		if failed || st.LastError != "" {
			return fmt.Errorf("conversion not created: %s", st.LastError)
		}
		return fmt.Errorf("conversion not created")
	}
	return nil
}

// parseLineEdit reads "<line>=<qty>" where line is a 1-based index or an
// item code.
func parseLineEdit(arg string, wb conversion.LoanWaybillSummary) (int, string, error) {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid line quantity %q, expected <line>=<qty>", arg)
	}
	key, raw := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	if n, err := strconv.Atoi(key); err == nil {
		if n < 1 || n > len(wb.Items) {
			return 0, "", fmt.Errorf("line %d out of range (1-%d)", n, len(wb.Items))
		}
		return n - 1, raw, nil
	}
	for i, it := range wb.Items {
		if it.ItemCode == key {
			return i, raw, nil
		}
	}
	return 0, "", fmt.Errorf("item %s is not on loan waybill %s", key, wb.ID)
}

func workflowError(st conversion.State) error {
	switch st.Outcome {
	case conversion.OutcomeNothingPending:
		return nil
	case conversion.OutcomeLoadFailed:
		return fmt.Errorf("cannot load pending loans: %s", st.LastError)
	}
	if st.LastError != "" {
		return fmt.Errorf("%s", st.LastError)
	}
	return fmt.Errorf("loan conversion closed")
}

func lineRef(it conversion.LoanLineItem) string {
	var refs []string
	if it.BatchNo != "" {
		refs = append(refs, "batch "+it.BatchNo)
	}
	if it.SerialNo != "" {
		refs = append(refs, "serial "+it.SerialNo)
	}
	if it.ExpiryDate != "" {
		refs = append(refs, "exp "+it.ExpiryDate)
	}
	if len(refs) == 0 {
		return ""
	}
	return " (" + strings.Join(refs, ", ") + ")"
}
