package erp

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

func TestSalesOrderFilters(t *testing.T) {
	assert.Empty(t, salesOrderFilters(SOListOptions{}))

	filters := salesOrderFilters(SOListOptions{Customer: "Mulago", Convertible: true})
	require.Len(t, filters, 3)
	assert.Equal(t, []interface{}{"customer", "like", "%Mulago%"}, filters[0])
	assert.Equal(t, []interface{}{"docstatus", "=", conversion.DocStatusSubmitted}, filters[1])
	assert.Equal(t, []interface{}{"per_delivered", "<", 100}, filters[2])
}

func TestParseSOListOptions(t *testing.T) {
	opts := parseSOListOptions([]string{"--customer=Mulago Hospital", "--status=To Deliver", "--convertible", "--bogus"})
	assert.Equal(t, SOListOptions{Customer: "Mulago Hospital", Status: "To Deliver", Convertible: true}, opts)
}

func TestListSalesOrders(t *testing.T) {
	var query url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resource/Sales Order", r.URL.Path)
		query = r.URL.Query()
		w.Write([]byte(`{"data": [
			{"name": "SAL-ORD-2026-00012", "customer": "Mulago Hospital", "status": "To Deliver and Bill", "docstatus": 1, "per_delivered": 40, "grand_total": 1250000},
			{"name": "SAL-ORD-2026-00011", "customer": "Nsambya Hospital", "status": "Completed", "docstatus": 1, "per_delivered": 100, "grand_total": 90000}
		]}`))
	})

	orders, err := c.ListSalesOrders(context.Background(), SOListOptions{Convertible: true})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.JSONEq(t, `[["docstatus","=",1],["per_delivered","<",100]]`, query.Get("filters"))
	assert.Equal(t, "creation desc", query.Get("order_by"))

	assert.Equal(t, "SAL-ORD-2026-00012", orders[0].Name)
	assert.True(t, orders[0].Parent().ConversionAvailable())
	assert.False(t, orders[1].Parent().ConversionAvailable())
	assert.Equal(t, 1250000.0, orders[0].GrandTotal)
}

func TestGetSalesOrder(t *testing.T) {
	srv := newFakeERP(t)
	c := srv.client()

	so, err := c.GetSalesOrder(context.Background(), "SAL-ORD-2026-00012")
	require.NoError(t, err)

	assert.Equal(t, "Mulago Hospital", so.Customer)
	assert.Equal(t, conversion.DocStatusSubmitted, so.DocStatus)
	assert.True(t, so.PerDelivered.Equal(decimal.NewFromInt(40)))
	require.Len(t, so.Items, 2)
	assert.Equal(t, "GLOVE-M", so.Items[0].ItemCode)
	assert.True(t, so.Items[0].DeliveredQty.Equal(decimal.NewFromInt(12)))

	parent := so.Parent()
	assert.Equal(t, "SAL-ORD-2026-00012", parent.ID)
	assert.True(t, parent.ConversionAvailable())
}

func TestGetSalesOrder_NotFound(t *testing.T) {
	srv := newFakeERP(t)
	c := srv.client()

	_, err := c.GetSalesOrder(context.Background(), "SAL-ORD-1999-00001")
	require.Error(t, err)
	assert.Equal(t, "DoesNotExistError", err.Error())
}

func TestCreatePromissoryNote(t *testing.T) {
	var method, so string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/method/"+rpcCreatePromissoryNote, r.URL.Path)
		method = r.Method
		so = r.URL.Query().Get("sales_order")
		w.Write([]byte(`{"message": "PN-2026-0004"}`))
	})

	name, err := c.CreatePromissoryNote(context.Background(), "SAL-ORD-2026-00012")
	require.NoError(t, err)
	assert.Equal(t, "PN-2026-0004", name)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "SAL-ORD-2026-00012", so)
}

func TestGetDeliveryNote(t *testing.T) {
	srv := newFakeERP(t)
	c := srv.client()

	dn, err := c.GetDeliveryNote(context.Background(), "MAT-DN-2026-00031")
	require.NoError(t, err)

	assert.Equal(t, "Draft", dn.Status)
	assert.Equal(t, conversion.DocStatusDraft, dn.DocStatus)
	assert.Equal(t, "LW-0007", dn.LoanWaybill)
	require.Len(t, dn.Items, 1)
	assert.Equal(t, "B-221", dn.Items[0].BatchNo)
	assert.Equal(t, "SAL-ORD-2026-00012", dn.Items[0].AgainstSalesOrder)
	assert.True(t, dn.Items[0].Qty.Equal(decimal.NewFromInt(10)))
}

func TestSubmitDocument(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/method/frappe.client.submit", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		body = string(raw)
		w.Write([]byte(`{"message": {"name": "MAT-DN-2026-00031", "docstatus": 1}}`))
	})

	require.NoError(t, c.submitDocument(context.Background(), conversion.DeliveryNoteDoctype, "MAT-DN-2026-00031"))
	assert.JSONEq(t, `{"doc": {"doctype": "Delivery Note", "name": "MAT-DN-2026-00031"}}`, body)
}

func TestFormatQty(t *testing.T) {
	assert.Equal(t, "0", FormatQty(decimal.Zero))
	assert.Equal(t, "1,234", FormatQty(decimal.NewFromInt(1234)))
	assert.Equal(t, "2.5", FormatQty(decimal.RequireFromString("2.50")))
}

func TestFormatCurrency(t *testing.T) {
	c := &Client{Config: &Config{}}
	assert.Equal(t, "1,234.50", c.FormatCurrency(1234.5))

	c.Config.Currency = "UGX"
	assert.Equal(t, "UGX 1,250,000.00", c.FormatCurrency(1250000))
}

func TestLooseJSONReaders(t *testing.T) {
	assert.Equal(t, "", str(nil))
	assert.Equal(t, "1", str(float64(1)))
	assert.True(t, num("2.5").Equal(decimal.RequireFromString("2.5")))
	assert.True(t, num(true).IsZero())
	assert.Equal(t, 1, intField(float64(1)))
	assert.Equal(t, 2, intField("2"))
}

func TestSortListItems(t *testing.T) {
	items := []ListItem{
		{name: "SAL-ORD-2026-00012", amount: 100},
		{name: "SAL-ORD-2026-00010", amount: 300},
		{name: "SAL-ORD-2026-00011", amount: 200},
	}

	names := func(in []ListItem) []string {
		out := make([]string, len(in))
		for i, it := range in {
			out[i] = it.name
		}
		return out
	}

	assert.Equal(t, []string{"SAL-ORD-2026-00012", "SAL-ORD-2026-00010", "SAL-ORD-2026-00011"}, names(sortListItems(items, 0)))
	assert.Equal(t, []string{"SAL-ORD-2026-00011", "SAL-ORD-2026-00010", "SAL-ORD-2026-00012"}, names(sortListItems(items, 1)))
	assert.Equal(t, []string{"SAL-ORD-2026-00010", "SAL-ORD-2026-00011", "SAL-ORD-2026-00012"}, names(sortListItems(items, 2)))
	assert.Equal(t, []string{"SAL-ORD-2026-00010", "SAL-ORD-2026-00011", "SAL-ORD-2026-00012"}, names(sortListItems(items, 3)))
	assert.Equal(t, "SAL-ORD-2026-00012", items[0].name, "input must not be reordered")
}
