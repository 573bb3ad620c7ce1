package moyasar

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "moyasar-test", Output: io.Discard})
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), config.MoyasarConfig{
		SecretKey: "sk_test_abc",
		BaseURL:   baseURL,
		Currency:  "SAR",
		Timeout:   2 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresSecret(t *testing.T) {
	if _, err := NewClient(context.Background(), config.MoyasarConfig{}, testLogger()); err == nil {
		t.Fatal("expected error for missing secret key")
	}
}

func TestFetchPaymentPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "sk_test_abc" {
			t.Fatalf("missing basic auth, got user %q", user)
		}
		if r.URL.Path != "/v1/payments/pay_123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"pay_123","status":"paid","amount":50000,"currency":"SAR"}`)
	}))
	defer srv.Close()

	payment, err := testClient(t, srv.URL).FetchPayment(context.Background(), "pay_123")
	if err != nil {
		t.Fatalf("FetchPayment: %v", err)
	}
	if !payment.Paid() {
		t.Fatalf("expected paid, got status %q", payment.Status)
	}
	if payment.Amount != 50000 {
		t.Fatalf("unexpected amount %d", payment.Amount)
	}
	if len(payment.Raw()) == 0 {
		t.Fatal("expected raw body to be retained")
	}
}

func TestFetchPaymentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"type":"invalid_request_error","message":"payment not found"}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchPayment(context.Background(), "pay_missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not_found code, got %v", err)
	}
}

func TestFetchPaymentGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchPayment(context.Background(), "pay_123")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestFetchPaymentRequiresID(t *testing.T) {
	_, err := testClient(t, "http://localhost:0").FetchPayment(context.Background(), "  ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}
