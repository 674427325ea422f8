package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOrdersNotify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/ORD-1/notify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("expected bearer key, got %q", got)
		}
		var body notifyOrderRequest
		json.NewDecoder(r.Body).Decode(&body)
		if !body.AttachInvoice {
			t.Error("expected attachInvoice")
		}
		w.Write([]byte(`{"customer":{"sent":true,"messageId":"m1"},"admin":{"sent":false,"error":"No email service configured"}}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "key").Orders.Notify(context.Background(), "ORD-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Customer.Sent || res.Customer.MessageID != "m1" {
		t.Errorf("unexpected customer result: %+v", res.Customer)
	}
	if res.Admin.Sent || res.Admin.Error != "No email service configured" {
		t.Errorf("unexpected admin result: %+v", res.Admin)
	}
}

func TestNoAPIKeyOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("expected no Authorization header")
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	h, err := New(srv.URL+"/", "").Health(context.Background())
	if err != nil || h.Status != "ok" {
		t.Errorf("unexpected health: %+v, %v", h, err)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		w.Write([]byte(`{"error":"smtp: send_timeout","kind":"send_timeout"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Emails.SendTemplate(context.Background(), SendTemplateRequest{Template: "t", To: "a@b.co"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusGatewayTimeout || apiErr.Kind != "send_timeout" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Notifications.Send(context.Background(), KindLowStock, map[string]any{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad gateway" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUploads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/uploads/products":
			f, fh, err := r.FormFile("file")
			if err != nil {
				t.Errorf("form file: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			if fh.Filename != "pack.png" || string(data) != "png" {
				t.Errorf("unexpected upload %q %q", fh.Filename, data)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"url":"http://x/uploads/products/pack.png","size":3}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/uploads":
			if r.URL.Query().Get("url") != "http://x/uploads/products/pack.png" {
				t.Errorf("unexpected url query %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"deleted":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/uploads/size":
			w.Write([]byte(`{"size":3}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ctx := context.Background()

	up, err := c.Uploads.Upload(ctx, "products", "pack.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if up.Size != 3 {
		t.Errorf("expected size 3, got %d", up.Size)
	}

	size, err := c.Uploads.Size(ctx, up.URL)
	if err != nil || size != 3 {
		t.Errorf("unexpected size %d, %v", size, err)
	}

	deleted, err := c.Uploads.Delete(ctx, up.URL)
	if err != nil || !deleted {
		t.Errorf("unexpected delete %v, %v", deleted, err)
	}
}
