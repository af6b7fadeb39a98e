package erp

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

func (m Model) loadSalesOrders(opts SOListOptions) tea.Cmd {
	return func() tea.Msg {
		orders, err := m.client.ListSalesOrders(context.Background(), opts)
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(orders))
		for _, so := range orders {
			detail := fmt.Sprintf("%s | %s | %s%% delivered | %s", so.Customer, renderStatusBadge(so.Status),
				FormatQty(so.PerDelivered), m.client.FormatCurrency(so.GrandTotal))
			items = append(items, ListItem{name: so.Name, details: detail, date: so.TransactionDate, amount: so.GrandTotal, status: so.Status})
		}
		return dataLoadedMsg{items}
	}
}

// loadSODetail fetches sales order detail
func (m Model) loadSODetail(name string) tea.Cmd {
	return func() tea.Msg {
		so, err := m.client.GetSalesOrder(context.Background(), name)
		if err != nil {
			return errorMsg{err}
		}
		return salesOrderMsg{so}
	}
}

// renderSODetail renders the sales order detail view
func (m Model) renderSODetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	if m.salesOrder == nil {
		return "\n  No data"
	}
	so := m.salesOrder

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Sales Order: "+so.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", so.Customer))
	b.WriteString(fmt.Sprintf("  Date: %s\n", so.TransactionDate))
	b.WriteString(fmt.Sprintf("  Delivery Date: %s\n", so.DeliveryDate))
	b.WriteString(fmt.Sprintf("  Status: %s\n", renderStatusBadge(so.Status)))
	b.WriteString(fmt.Sprintf("  Delivered: %s%%\n", FormatQty(so.PerDelivered)))
	b.WriteString(fmt.Sprintf("  Total: %s\n", m.client.FormatCurrency(so.GrandTotal)))

	if len(so.Items) > 0 {
		b.WriteString(fmt.Sprintf("\n  %s\n", selectedStyle.Render("Items:")))
		for _, it := range so.Items {
			b.WriteString(fmt.Sprintf("    - %s: %s x %s = %s (delivered %s)\n", it.ItemCode, FormatQty(it.Qty),
				m.client.FormatCurrency(it.Rate), m.client.FormatCurrency(it.Amount), FormatQty(it.DeliveredQty)))
		}
	}

	if so.Parent().ConversionAvailable() {
		b.WriteString("\n  " + successStyle.Render("[l] Convert loan to delivery note"))
	}

	return boxStyle.Render(b.String())
}

func (m Model) createPromissoryNote(name string) tea.Cmd {
	return func() tea.Msg {
		pn, err := m.client.CreatePromissoryNote(context.Background(), name)
		if err != nil {
			return formSubmittedMsg{success: false, message: err.Error()}
		}
		return formSubmittedMsg{success: true, message: fmt.Sprintf("Promissory Note created: %s", pn)}
	}
}

func (m Model) loadDeliveryNotes() tea.Cmd {
	return func() tea.Msg {
		notes, err := m.client.ListDeliveryNotes(context.Background(), DNListOptions{})
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(notes))
		for _, dn := range notes {
			detail := fmt.Sprintf("%s | %s | %s", dn.Customer, renderStatusBadge(dn.Status), m.client.FormatCurrency(dn.GrandTotal))
			items = append(items, ListItem{name: dn.Name, details: detail, date: dn.PostingDate, amount: dn.GrandTotal, status: dn.Status})
		}
		return dataLoadedMsg{items}
	}
}

func (m Model) loadDNDetail(name string) tea.Cmd {
	return func() tea.Msg {
		dn, err := m.client.GetDeliveryNote(context.Background(), name)
		if err != nil {
			return errorMsg{err}
		}
		return deliveryNoteMsg{dn}
	}
}

// renderDNDetail renders the delivery note detail view
func (m Model) renderDNDetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	if m.deliveryNote == nil {
		return "\n  No data"
	}
	dn := m.deliveryNote

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Delivery Note: "+dn.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", dn.Customer))
	b.WriteString(fmt.Sprintf("  Date: %s\n", dn.PostingDate))
	b.WriteString(fmt.Sprintf("  Status: %s\n", renderStatusBadge(dn.Status)))
	if dn.LoanWaybill != "" {
		b.WriteString(fmt.Sprintf("  Loan Waybill: %s\n", dn.LoanWaybill))
	}
	b.WriteString(fmt.Sprintf("  Total: %s\n", m.client.FormatCurrency(dn.GrandTotal)))

	if len(dn.Items) > 0 {
		b.WriteString(fmt.Sprintf("\n  %s\n", selectedStyle.Render("Items:")))
		for _, it := range dn.Items {
			ref := lineRef(conversion.LoanLineItem{BatchNo: it.BatchNo, SerialNo: it.SerialNo})
			b.WriteString(fmt.Sprintf("    - %s: %s x %s = %s%s\n", it.ItemCode, FormatQty(it.Qty),
				m.client.FormatCurrency(it.Rate), m.client.FormatCurrency(it.Amount), ref))
		}
	}

	return boxStyle.Render(b.String())
}

func (m Model) submitDN(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.submitDocument(context.Background(), conversion.DeliveryNoteDoctype, name); err != nil {
			return formSubmittedMsg{success: false, message: err.Error()}
		}
		return formSubmittedMsg{success: true, message: fmt.Sprintf("Delivery Note submitted: %s", name)}
	}
}

// handleSalesKeys handles the document actions of the detail views. It
// reports false when key has no action in the current view.
func (m Model) handleSalesKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch m.view {
	case ViewSODetail:
		if m.salesOrder == nil {
			return m, nil, false
		}
		switch key {
		case "l":
			if m.salesOrder.Parent().ConversionAvailable() {
				model, cmd := m.startConversion()
				return model, cmd, true
			}
		case "p":
			if m.salesOrder.DocStatus == conversion.DocStatusSubmitted {
				m.askConfirm("promissory_so", fmt.Sprintf("Create Promissory Note for %s?", m.selectedItem))
				return m, nil, true
			}
		}

	case ViewDNDetail:
		if m.deliveryNote == nil {
			return m, nil, false
		}
		if key == "s" && m.deliveryNote.DocStatus == conversion.DocStatusDraft {
			m.askConfirm("submit_dn", fmt.Sprintf("Submit Delivery Note %s?", m.selectedItem))
			return m, nil, true
		}
	}
	return m, nil, false
}
