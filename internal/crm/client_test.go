package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gyeh/billsync/internal/model"
)

func testClient(t *testing.T, srvURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Token:          "test-token",
		LocationID:     "loc123",
		BaseURL:        srvURL,
		UpsertInterval: 1, // effectively unlimited in tests
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{LocationID: "loc"}); err == nil {
		t.Error("missing token should fail")
	}
	if _, err := NewClient(Config{Token: "tok"}); err == nil {
		t.Error("missing location id should fail")
	}
}

func TestResolveFieldIDs_ExactBeatsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/locations/loc123/customFields" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Version"); got != "2021-07-28" {
			t.Errorf("Version header: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization header: %q", got)
		}
		// A loosely named descriptor listed before the canonical one.
		json.NewEncoder(w).Encode(map[string]any{
			"customFields": []map[string]string{
				{"id": "f-loose", "name": "Total Amount Paid"},
				{"id": "f-exact", "fieldKey": "contact.total_amount_paid"},
				{"id": "f-acct", "key": "patient_account"},
				{"id": "f-name", "label": "Patient Name"},
				{"id": "f-loc", "name": "Location Name"},
				{"id": "f-ins", "name": "Insurance Name"},
			},
		})
	}))
	defer srv.Close()

	ids, err := testClient(t, srv.URL).ResolveFieldIDs(context.Background())
	if err != nil {
		t.Fatalf("ResolveFieldIDs: %v", err)
	}
	if ids[KeyTotalAmountPaid] != "f-exact" {
		t.Errorf("canonical fieldKey should win, got %q", ids[KeyTotalAmountPaid])
	}
	if ids[KeyPatientAccount] != "f-acct" || ids[KeyPatientName] != "f-name" {
		t.Errorf("normalized matches: %v", ids)
	}
}

func TestResolveFieldIDs_ItemsPayloadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"id": "1", "key": "total_amount_paid"},
				{"id": "2", "key": "patient_account"},
				{"id": "3", "key": "patient_name"},
				{"id": "4", "key": "location_name"},
				{"id": "5", "key": "insurance_name"},
			},
		})
	}))
	defer srv.Close()

	ids, err := testClient(t, srv.URL).ResolveFieldIDs(context.Background())
	if err != nil {
		t.Fatalf("ResolveFieldIDs: %v", err)
	}
	if len(ids) != 5 {
		t.Errorf("expected all 5 keys resolved, got %v", ids)
	}
}

func TestResolveFieldIDs_MissingKeyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"customFields": []map[string]string{
				{"id": "1", "key": "total_amount_paid"},
			},
		})
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).ResolveFieldIDs(context.Background())
	if err == nil {
		t.Fatal("expected unresolved-key error")
	}
	if !strings.Contains(err.Error(), "patient_account") {
		t.Errorf("error should name the missing key: %v", err)
	}
}

func TestUpsertContact_Payload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/contacts/upsert" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"contact": map[string]string{"id": "contact-42"}})
	}))
	defer srv.Close()

	ids := FieldIDs{
		KeyTotalAmountPaid: "f-amt",
		KeyPatientAccount:  "f-acct",
		KeyPatientName:     "f-name",
		KeyLocationName:    "f-loc",
		KeyInsuranceName:   "f-ins",
	}
	rec := &model.AccountRecord{
		AccountID: "1001",
		TotalPaid: 75.5,
		Carried:   map[string]string{"LOCATION NAME": "Downtown"},
		FirstName: "Jane",
		LastName:  "Doe",
	}

	id, err := testClient(t, srv.URL).UpsertContact(context.Background(), rec, ids)
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if id != "contact-42" {
		t.Errorf("contact id: got %q", id)
	}

	if captured["email"] != "1001@patients.local" {
		t.Errorf("anchor email: got %v", captured["email"])
	}
	if captured["locationId"] != "loc123" {
		t.Errorf("locationId: got %v", captured["locationId"])
	}
	if captured["firstName"] != "Jane" || captured["lastName"] != "Doe" {
		t.Errorf("name fields: %v %v", captured["firstName"], captured["lastName"])
	}

	fields := captured["customFields"].([]any)
	values := map[string]any{}
	for _, f := range fields {
		m := f.(map[string]any)
		values[m["id"].(string)] = m["value"]
	}
	if values["f-acct"] != "1001" {
		t.Errorf("account field should be a string: %v", values["f-acct"])
	}
	if values["f-amt"] != 75.5 {
		t.Errorf("amount field should be numeric: %v", values["f-amt"])
	}
	if _, ok := values["f-loc"]; !ok {
		t.Error("carried location should be sent")
	}
	// Fields the source never carried stay out of the payload.
	if _, ok := values["f-ins"]; ok {
		t.Error("insurance was not carried and should be omitted")
	}
	if _, ok := values["f-name"]; ok {
		t.Error("patient name was not carried and should be omitted")
	}
}

func TestUpsertContact_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := &model.AccountRecord{AccountID: "1001"}
	_, err := testClient(t, srv.URL).UpsertContact(context.Background(), rec, FieldIDs{})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status: got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "upstream exploded") {
		t.Errorf("body not preserved: %q", apiErr.Body)
	}
}

func TestVerifyContact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contacts/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("locationId") != "loc123" || q.Get("query") != "1001@patients.local" {
			t.Errorf("query params: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{"contacts": []any{map[string]string{"id": "c1"}}})
	}))
	defer srv.Close()

	raw, err := testClient(t, srv.URL).VerifyContact(context.Background(), AnchorEmail("1001"))
	if err != nil {
		t.Fatalf("VerifyContact: %v", err)
	}
	if !strings.Contains(string(raw), "c1") {
		t.Errorf("response not returned: %s", raw)
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"contact.total_amount_paid": "total_amount_paid",
		"Total Amount Paid":         "total_amount_paid",
		"  Patient-Account ":        "patient_account",
		"insurance_name":            "insurance_name",
	}
	for in, want := range cases {
		if got := normalizeKey(in); got != want {
			t.Errorf("normalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
