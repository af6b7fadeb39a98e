package erp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		ERPURL:          srv.URL,
		APIKey:          "key123456789",
		APISecret:       "secret",
		NginxCookieName: "auth_cookie",
		Brand:           "NBS ERP",
	})
}

// fakeERP serves the handful of endpoints the loan conversion touches and
// records the Delivery Note creation requests it receives.
type fakeERP struct {
	t *testing.T

	mu            sync.Mutex
	pendingStatus int
	pendingBody   string
	createStatus  int
	createBody    []byte
	created       []map[string]interface{}
	calls         map[string]int
}

func newFakeERP(t *testing.T) *fakeERP {
	return &fakeERP{
		t:             t,
		pendingStatus: http.StatusOK,
		pendingBody:   pendingLoansJSON,
		createStatus:  http.StatusOK,
		createBody:    []byte(`{"message": "MAT-DN-2026-00031"}`),
		calls:         map[string]int{},
	}
}

func (f *fakeERP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/method/" + rpcPendingLoanWaybills:
		w.WriteHeader(f.pendingStatus)
		io.WriteString(w, f.pendingBody)
	case "/api/method/" + rpcCreateDNFromLoan:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode create request: %v", err)
		}
		f.created = append(f.created, body)
		w.WriteHeader(f.createStatus)
		w.Write(f.createBody)
	case "/api/resource/Sales Order/SAL-ORD-2026-00012":
		io.WriteString(w, salesOrderJSON)
	case "/api/resource/Delivery Note/MAT-DN-2026-00031":
		io.WriteString(w, deliveryNoteJSON)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"exc_type": "DoesNotExistError"}`)
	}
}

func (f *fakeERP) client() *Client {
	return newTestClient(f.t, f.ServeHTTP)
}

func (f *fakeERP) createRequests() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.created...)
}

func (f *fakeERP) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeERP) failCreate(status int, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createStatus = status
	f.createBody = body
}

func (f *fakeERP) setPending(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingStatus = status
	f.pendingBody = body
}

// writeJSON writes v as a 200 JSON response.
func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

// throwBody builds the body Frappe sends for frappe.throw(msg).
func throwBody(t *testing.T, excType, msg string) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		t.Fatal(err)
	}
	outer, err := json.Marshal([]string{string(inner)})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"exc_type":         excType,
		"_server_messages": string(outer),
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

const pendingLoansJSON = `{"message": {
	"customer": "Mulago Hospital",
	"sales_order": "SAL-ORD-2026-00012",
	"loan_waybills": [{
		"loan_waybill": "LW-0007",
		"loan_date": "2026-09-01",
		"items": [
			{"item_code": "GLOVE-M", "description": "Examination gloves, medium",
			 "qty_loaned": 20, "qty_converted": 5, "qty_remaining": 15,
			 "so_qty_remaining": 10, "max_convertible_qty": 10,
			 "batch_no": "B-221", "expiry_date": "2027-03-31", "warehouse": "Loans - NBS",
			 "stock_entry": "STE-0042", "stock_entry_detail": "ste-detail-1"},
			{"item_code": "SYR-5ML", "description": "Syringe 5ml",
			 "qty_loaned": 3, "qty_converted": 0, "qty_remaining": 3,
			 "so_qty_remaining": 8, "max_convertible_qty": 8,
			 "serial_no": "SN-900", "warehouse": "Loans - NBS",
			 "stock_entry": "STE-0042", "stock_entry_detail": "ste-detail-2"}
		]
	}]
}}`

const salesOrderJSON = `{"data": {
	"name": "SAL-ORD-2026-00012",
	"customer": "Mulago Hospital",
	"transaction_date": "2026-08-20",
	"delivery_date": "2026-09-30",
	"status": "To Deliver and Bill",
	"docstatus": 1,
	"per_delivered": 40,
	"grand_total": 1250000,
	"items": [
		{"item_code": "GLOVE-M", "qty": 30, "delivered_qty": 12, "rate": 25000, "amount": 750000, "warehouse": "Stores - NBS"},
		{"item_code": "SYR-5ML", "qty": 20, "delivered_qty": 8, "rate": 25000, "amount": 500000, "warehouse": "Stores - NBS"}
	]
}}`

const deliveryNoteJSON = `{"data": {
	"name": "MAT-DN-2026-00031",
	"customer": "Mulago Hospital",
	"posting_date": "2026-10-16",
	"status": "Draft",
	"docstatus": 0,
	"grand_total": 250000,
	"loan_waybill": "LW-0007",
	"items": [
		{"item_code": "GLOVE-M", "qty": 10, "rate": 25000, "amount": 250000,
		 "batch_no": "B-221", "warehouse": "Loans - NBS", "against_sales_order": "SAL-ORD-2026-00012"}
	]
}}`
