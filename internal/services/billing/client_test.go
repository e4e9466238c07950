package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/j-veylop/quota-autopay/internal/models"
)

type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(fn func(req *http.Request) (*http.Response, error)) *Client {
	c := New("https://billing.test/", "key-1")
	c.SetHTTPClient(&http.Client{Transport: &MockRoundTripper{RoundTripFunc: fn}})
	return c
}

var testTokens = models.TokenBundle{IDToken: "id-tok", AccessToken: "acc-tok"}

func TestQuotaDetails(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return jsonResponse(200, `{"status":"SUCCESS","data":{"quotas":[{"name":"A"},{"quota_name":"B"}]}}`), nil
	})

	records, err := c.QuotaDetails(context.Background(), testTokens)
	if err != nil {
		t.Fatalf("QuotaDetails() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if gotReq.URL.String() != "https://billing.test/"+quotaDetailsPath {
		t.Errorf("unexpected url %s", gotReq.URL)
	}
	if gotReq.Header.Get("x-api-key") != "key-1" {
		t.Errorf("missing api key header")
	}
	if gotReq.Header.Get("Authorization") != "Bearer id-tok" {
		t.Errorf("unexpected auth header %q", gotReq.Header.Get("Authorization"))
	}
}

func TestQuotaDetails_Errors(t *testing.T) {
	tests := []struct {
		name   string
		resp   *http.Response
		err    error
		target error
	}{
		{name: "TransportError", err: errors.New("net down")},
		{name: "Unauthorized", resp: jsonResponse(401, ""), target: ErrUnauthorized},
		{name: "ServerError", resp: jsonResponse(500, "boom")},
		{name: "BadJSON", resp: jsonResponse(200, "nope")},
		{name: "NotSuccess", resp: jsonResponse(200, `{"status":"FAILED","message":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(func(req *http.Request) (*http.Response, error) {
				return tt.resp, tt.err
			})
			_, err := c.QuotaDetails(context.Background(), testTokens)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestBalance(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"SUCCESS","data":{"balance":{"remaining":12500}}}`), nil
	})

	got, err := c.Balance(context.Background(), testTokens)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if got != 12500 {
		t.Errorf("Balance() = %d, want 12500", got)
	}
}

func TestPackageDetail(t *testing.T) {
	var payload map[string]any
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &payload)
		return jsonResponse(200, `{"status":"SUCCESS","data":{"package_option":{"code":"OPT1","name":"Masa Aktif","price":1500},"token_confirmation":"tc"}}`), nil
	})

	ref := PackageRef{FamilyCode: "fam", VariantCode: "var", Order: 2}
	detail, err := c.PackageDetail(context.Background(), testTokens, ref)
	if err != nil {
		t.Fatalf("PackageDetail() error = %v", err)
	}

	if detail.PackageOption == nil || detail.PackageOption.Code != "OPT1" {
		t.Errorf("unexpected detail %+v", detail)
	}
	if detail.TokenConfirmation != "tc" {
		t.Errorf("TokenConfirmation = %q", detail.TokenConfirmation)
	}
	if payload["family_code"] != "fam" || payload["variant_code"] != "var" || payload["order"] != float64(2) {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestSettle(t *testing.T) {
	var got settlementRequest
	var apiKey string
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		apiKey = req.Header.Get("x-api-key")
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &got)
		return jsonResponse(200, `{"status":"SUCCESS"}`), nil
	})

	items := []models.PaymentLineItem{
		{ItemCode: "A", ItemPrice: 1000},
		{ItemCode: "B", ItemPrice: 500},
	}
	if err := c.Settle(context.Background(), "settle-key", testTokens, items, "BUY_PACKAGE", false, ""); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if apiKey != "settle-key" {
		t.Errorf("api key = %q, want settle-key", apiKey)
	}
	if got.TotalAmount != 1500 || got.PaymentFor != "BUY_PACKAGE" || got.Overwrite {
		t.Errorf("unexpected settlement request %+v", got)
	}
	if got.AccessToken != "acc-tok" {
		t.Errorf("AccessToken = %q", got.AccessToken)
	}
}

func TestSettle_NoItems(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	if err := c.Settle(context.Background(), "k", testTokens, nil, "BUY_PACKAGE", false, ""); err == nil {
		t.Error("expected error for empty items")
	}
}
