package erp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

// DeliveryNoteItem is a line of a Delivery Note
type DeliveryNoteItem struct {
	ItemCode          string
	Qty               decimal.Decimal
	Rate              float64
	Amount            float64
	BatchNo           string
	SerialNo          string
	Warehouse         string
	AgainstSalesOrder string
}

// DeliveryNote is a Delivery Note as shown in the CLI and TUI
type DeliveryNote struct {
	Name        string
	Customer    string
	PostingDate string
	Status      string
	DocStatus   int
	GrandTotal  float64
	LoanWaybill string
	Items       []DeliveryNoteItem
}

// DNListOptions filters ListDeliveryNotes.
type DNListOptions struct {
	Customer string
	Status   string
}

func parseDNListOptions(args []string) DNListOptions {
	opts := DNListOptions{}
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

// ListDeliveryNotes lists Delivery Notes, newest first.
func (c *Client) ListDeliveryNotes(ctx context.Context, opts DNListOptions) ([]DeliveryNote, error) {
	filters := [][]interface{}{}
	if opts.Customer != "" {
		filters = append(filters, []interface{}{"customer", "like", fmt.Sprintf("%%%s%%", opts.Customer)})
	}
	if opts.Status != "" {
		filters = append(filters, []interface{}{"status", "=", opts.Status})
	}

	endpoint := "Delivery%20Note?limit_page_length=0&fields=" +
		encodeFields("name", "customer", "posting_date", "status", "grand_total", "docstatus") +
		"&order_by=creation%20desc"
	if len(filters) > 0 {
		encoded, err := encodeFilters(filters)
		if err != nil {
			return nil, err
		}
		endpoint += "&filters=" + encoded
	}

	result, err := c.RequestContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var notes []DeliveryNote
	if data, ok := result["data"].([]interface{}); ok {
		for _, item := range data {
			if m, ok := item.(map[string]interface{}); ok {
				notes = append(notes, deliveryNoteFromMap(m))
			}
		}
	}
	return notes, nil
}

// GetDeliveryNote loads one Delivery Note with its items.
func (c *Client) GetDeliveryNote(ctx context.Context, name string) (DeliveryNote, error) {
	result, err := c.RequestContext(ctx, "GET", "Delivery%20Note/"+url.PathEscape(name), nil)
	if err != nil {
		return DeliveryNote{}, err
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		return DeliveryNote{}, fmt.Errorf("delivery note %s not found", name)
	}

	dn := deliveryNoteFromMap(data)
	if items, ok := data["items"].([]interface{}); ok {
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				rate, _ := m["rate"].(float64)
				amount, _ := m["amount"].(float64)
				dn.Items = append(dn.Items, DeliveryNoteItem{
					ItemCode:          str(m["item_code"]),
					Qty:               num(m["qty"]),
					Rate:              rate,
					Amount:            amount,
					BatchNo:           str(m["batch_no"]),
					SerialNo:          str(m["serial_no"]),
					Warehouse:         str(m["warehouse"]),
					AgainstSalesOrder: str(m["against_sales_order"]),
				})
			}
		}
	}
	return dn, nil
}

func deliveryNoteFromMap(m map[string]interface{}) DeliveryNote {
	total, _ := m["grand_total"].(float64)
	return DeliveryNote{
		Name:        str(m["name"]),
		Customer:    str(m["customer"]),
		PostingDate: str(m["posting_date"]),
		Status:      str(m["status"]),
		DocStatus:   intField(m["docstatus"]),
		GrandTotal:  total,
		LoanWaybill: str(m["loan_waybill"]),
	}
}

// CmdDN handles Delivery Note commands
func (c *Client) CmdDN(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: nbs-cli dn <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, submit")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  nbs-cli dn list")
		fmt.Println("  nbs-cli dn list --customer=\"Mulago\" --status=Draft")
		fmt.Println("  nbs-cli dn get MAT-DN-2026-00031")
		fmt.Println("  nbs-cli dn submit MAT-DN-2026-00031")
		return nil
	}

	switch args[0] {
	case "list":
		return c.dnList(parseDNListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: nbs-cli dn get <name>")
		}
		return c.dnGet(args[1])
	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("usage: nbs-cli dn submit <name>")
		}
		return c.dnSubmit(args[1])
	default:
		return fmt.Errorf("unknown dn subcommand: %s", args[0])
	}
}

func dnStatusColor(status string) string {
	switch status {
	case "Completed", "To Bill":
		return Green
	case "Cancelled":
		return Red
	}
	return Yellow
}

func (c *Client) dnList(opts DNListOptions) error {
	fmt.Printf("%sFetching delivery notes...%s\n", Blue, Reset)

	notes, err := c.ListDeliveryNotes(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Printf("%sNo delivery notes found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sDelivery Notes (%d):%s\n", Cyan, len(notes), Reset)
	for _, dn := range notes {
		fmt.Printf("  %s - %s\n", dn.Name, dn.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Total: %s\n",
			dn.PostingDate, dnStatusColor(dn.Status), dn.Status, Reset, c.FormatCurrency(dn.GrandTotal))
	}
	return nil
}

func (c *Client) dnGet(name string) error {
	fmt.Printf("%sFetching delivery note: %s%s\n", Blue, name, Reset)

	dn, err := c.GetDeliveryNote(context.Background(), name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sDelivery Note: %s%s\n", Cyan, dn.Name, Reset)
	fmt.Printf("  Customer: %s\n", dn.Customer)
	fmt.Printf("  Date: %s\n", dn.PostingDate)
	fmt.Printf("  Status: %s%s%s\n", dnStatusColor(dn.Status), dn.Status, Reset)
	if dn.LoanWaybill != "" {
		fmt.Printf("  Loan Waybill: %s\n", dn.LoanWaybill)
	}
	fmt.Printf("  Total: %s\n", c.FormatCurrency(dn.GrandTotal))

	if len(dn.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		for _, it := range dn.Items {
			so := ""
			if it.AgainstSalesOrder != "" {
				so = fmt.Sprintf(" (SO: %s)", it.AgainstSalesOrder)
			}
			fmt.Printf("    - %s: %s x %s = %s%s%s\n", it.ItemCode, FormatQty(it.Qty),
				c.FormatCurrency(it.Rate), c.FormatCurrency(it.Amount),
				lineRef(conversion.LoanLineItem{BatchNo: it.BatchNo, SerialNo: it.SerialNo}), so)
		}
	}
	if dn.DocStatus == conversion.DocStatusDraft {
		fmt.Printf("\n  Use 'nbs-cli dn submit %s' to submit\n", dn.Name)
	}
	return nil
}

func (c *Client) dnSubmit(name string) error {
	fmt.Printf("%sSubmitting delivery note: %s%s\n", Blue, name, Reset)

	if err := c.submitDocument(context.Background(), conversion.DeliveryNoteDoctype, name); err != nil {
		return err
	}

	fmt.Printf("%s✓ Delivery Note submitted: %s%s\n", Green, name, Reset)
	return nil
}
