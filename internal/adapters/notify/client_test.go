package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/notify"
	"homestay_hub/internal/adapters/observability"
)

func TestClient_SendSMS_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" || r.URL.Path != "/messages" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer ts.Close()

	cl, err := notify.New(ts.URL+"/", "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := cl.SendSMS(ctx, "+84901234567", "code 123456"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
	if got["to"] != "+84901234567" || got["text"] != "code 123456" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_SendSMS_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid number"}`))
	}))
	defer ts.Close()

	cl, err := notify.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err = cl.SendSMS(context.Background(), "+1", "x")
	if !errors.Is(err, notify.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := notify.New("http://localhost", "", 1); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestLogNotifier_MasksCodes(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	if err := (notify.LogNotifier{}).SendSMS(context.Background(), "+84901234567", "Your code is 482913"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "482913") || strings.Contains(out, "+84901234567") {
		t.Fatalf("secret leaked to log: %s", out)
	}
	if !strings.Contains(out, "Your code is ******") || !strings.Contains(out, "567") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestClient_SendSMS_TransportErrorCounted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	cl, err := notify.New(url, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c := observability.ExternalErrors.WithLabelValues("sms", "messages", "*url.Error")
	before := testutil.ToFloat64(c)

	if err := cl.SendSMS(context.Background(), "+84901234567", "hi"); err == nil {
		t.Fatalf("expected transport error")
	}
	if got := testutil.ToFloat64(c) - before; got != 4 {
		t.Fatalf("expected 4 failed attempts counted, got %v", got)
	}
}
