package erp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

const rpcCreatePromissoryNote = "nbs_customization.controllers.sales_order.create_promissory_note_from_sales_order"

// SalesOrderItem is a line of a Sales Order
type SalesOrderItem struct {
	ItemCode     string
	ItemName     string
	Qty          decimal.Decimal
	DeliveredQty decimal.Decimal
	Rate         float64
	Amount       float64
	Warehouse    string
}

// SalesOrder is a Sales Order as shown in the CLI and TUI
type SalesOrder struct {
	Name            string
	Customer        string
	TransactionDate string
	DeliveryDate    string
	Status          string
	DocStatus       int
	PerDelivered    decimal.Decimal
	GrandTotal      float64
	Items           []SalesOrderItem
}

// Parent is the snapshot handed to the loan conversion workflow.
func (so SalesOrder) Parent() conversion.ParentDoc {
	return conversion.ParentDoc{
		ID:           so.Name,
		Customer:     so.Customer,
		Status:       so.Status,
		DocStatus:    so.DocStatus,
		PerDelivered: so.PerDelivered,
	}
}

// SOListOptions filters ListSalesOrders.
type SOListOptions struct {
	Customer    string
	Status      string
	Convertible bool // submitted and not fully delivered
}

func parseSOListOptions(args []string) SOListOptions {
	opts := SOListOptions{}
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--customer="):
			opts.Customer = strings.TrimPrefix(arg, "--customer=")
		case strings.HasPrefix(arg, "--status="):
			opts.Status = strings.TrimPrefix(arg, "--status=")
		case arg == "--convertible":
			opts.Convertible = true
		}
	}
	return opts
}

// salesOrderFilters builds the listing filters for opts.
func salesOrderFilters(opts SOListOptions) [][]interface{} {
	filters := [][]interface{}{}
	if opts.Customer != "" {
		filters = append(filters, []interface{}{"customer", "like", fmt.Sprintf("%%%s%%", opts.Customer)})
	}
	if opts.Status != "" {
		filters = append(filters, []interface{}{"status", "=", opts.Status})
	}
	if opts.Convertible {
		filters = append(filters,
			[]interface{}{"docstatus", "=", conversion.DocStatusSubmitted},
			[]interface{}{"per_delivered", "<", 100},
		)
	}
	return filters
}

// ListSalesOrders lists Sales Orders, newest first.
func (c *Client) ListSalesOrders(ctx context.Context, opts SOListOptions) ([]SalesOrder, error) {
	endpoint := "Sales%20Order?limit_page_length=0&fields=" +
		encodeFields("name", "customer", "transaction_date", "status", "grand_total", "docstatus", "per_delivered") +
		"&order_by=creation%20desc"
	if filters := salesOrderFilters(opts); len(filters) > 0 {
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

	var orders []SalesOrder
	if data, ok := result["data"].([]interface{}); ok {
		for _, item := range data {
			if m, ok := item.(map[string]interface{}); ok {
				orders = append(orders, salesOrderFromMap(m))
			}
		}
	}
	return orders, nil
}

// GetSalesOrder loads one Sales Order with its items.
func (c *Client) GetSalesOrder(ctx context.Context, name string) (SalesOrder, error) {
	result, err := c.RequestContext(ctx, "GET", "Sales%20Order/"+url.PathEscape(name), nil)
	if err != nil {
		return SalesOrder{}, err
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		return SalesOrder{}, fmt.Errorf("sales order %s not found", name)
	}

	so := salesOrderFromMap(data)
	if items, ok := data["items"].([]interface{}); ok {
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				rate, _ := m["rate"].(float64)
				amount, _ := m["amount"].(float64)
				so.Items = append(so.Items, SalesOrderItem{
					ItemCode:     str(m["item_code"]),
					ItemName:     str(m["item_name"]),
					Qty:          num(m["qty"]),
					DeliveredQty: num(m["delivered_qty"]),
					Rate:         rate,
					Amount:       amount,
					Warehouse:    str(m["warehouse"]),
				})
			}
		}
	}
	return so, nil
}

func salesOrderFromMap(m map[string]interface{}) SalesOrder {
	total, _ := m["grand_total"].(float64)
	return SalesOrder{
		Name:            str(m["name"]),
		Customer:        str(m["customer"]),
		TransactionDate: str(m["transaction_date"]),
		DeliveryDate:    str(m["delivery_date"]),
		Status:          str(m["status"]),
		DocStatus:       intField(m["docstatus"]),
		PerDelivered:    num(m["per_delivered"]),
		GrandTotal:      total,
	}
}

// CreatePromissoryNote creates a draft Promissory Note for the Sales Order
// and returns its name.
func (c *Client) CreatePromissoryNote(ctx context.Context, salesOrder string) (string, error) {
	var name string
	params := url.Values{"sales_order": {salesOrder}}
	if err := c.Call(ctx, "POST", rpcCreatePromissoryNote, params, nil, &name); err != nil {
		c.Logger.Warn("promissory note rejected", "sales_order", salesOrder, "error", err)
		return "", err
	}
	if name == "" {
		return "", &RemoteError{Message: "server did not return the new Promissory Note name"}
	}
	c.Logger.Info("promissory note created", "sales_order", salesOrder, "promissory_note", name)
	return name, nil
}

// CmdSO handles Sales Order commands
func (c *Client) CmdSO(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: nbs-cli so <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, promissory")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  nbs-cli so list")
		fmt.Println("  nbs-cli so list --customer=\"Mulago\" --status=\"To Deliver and Bill\"")
		fmt.Println("  nbs-cli so list --convertible")
		fmt.Println("  nbs-cli so get SAL-ORD-2026-00012")
		fmt.Println("  nbs-cli so promissory SAL-ORD-2026-00012")
		return nil
	}

	switch args[0] {
	case "list":
		return c.soList(parseSOListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: nbs-cli so get <name>")
		}
		return c.soGet(args[1])
	case "promissory":
		if len(args) < 2 {
			return fmt.Errorf("usage: nbs-cli so promissory <name>")
		}
		return c.soPromissory(args[1])
	default:
		return fmt.Errorf("unknown so subcommand: %s", args[0])
	}
}

func soStatusColor(status string) string {
	switch status {
	case "Completed", "To Deliver and Bill", "To Bill":
		return Green
	case "Cancelled", "Closed":
		return Red
	}
	return Yellow
}

func (c *Client) soList(opts SOListOptions) error {
	fmt.Printf("%sFetching sales orders...%s\n", Blue, Reset)

	orders, err := c.ListSalesOrders(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Printf("%sNo sales orders found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sSales Orders (%d):%s\n", Cyan, len(orders), Reset)
	for _, so := range orders {
		fmt.Printf("  %s - %s\n", so.Name, so.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Delivered: %s%% | Total: %s\n",
			so.TransactionDate, soStatusColor(so.Status), so.Status, Reset,
			FormatQty(so.PerDelivered), c.FormatCurrency(so.GrandTotal))
	}
	return nil
}

func (c *Client) soGet(name string) error {
	fmt.Printf("%sFetching sales order: %s%s\n", Blue, name, Reset)

	so, err := c.GetSalesOrder(context.Background(), name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sSales Order: %s%s\n", Cyan, so.Name, Reset)
	fmt.Printf("  Customer: %s\n", so.Customer)
	fmt.Printf("  Date: %s\n", so.TransactionDate)
	fmt.Printf("  Delivery Date: %s\n", so.DeliveryDate)
	fmt.Printf("  Status: %s%s%s\n", soStatusColor(so.Status), so.Status, Reset)
	fmt.Printf("  Delivered: %s%%\n", FormatQty(so.PerDelivered))
	fmt.Printf("  Total: %s\n", c.FormatCurrency(so.GrandTotal))

	if len(so.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		for _, it := range so.Items {
			fmt.Printf("    - %s: %s x %s = %s (delivered %s)\n", it.ItemCode, FormatQty(it.Qty),
				c.FormatCurrency(it.Rate), c.FormatCurrency(it.Amount), FormatQty(it.DeliveredQty))
		}
	}

	if so.Parent().ConversionAvailable() {
		fmt.Printf("\n  %sLoan conversion available:%s nbs-cli loans pending %s\n", Green, Reset, so.Name)
	}
	return nil
}

func (c *Client) soPromissory(name string) error {
	fmt.Printf("%sCreating promissory note from SO: %s%s\n", Blue, name, Reset)

	pn, err := c.CreatePromissoryNote(context.Background(), name)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓ Promissory Note created: %s%s\n", Green, pn, Reset)
	fmt.Printf("  From SO: %s\n", name)
	fmt.Printf("  Status: Draft\n")
	return nil
}
