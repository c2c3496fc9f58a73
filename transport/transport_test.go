package transport

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/chhz0/dispatchr/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogTransportDeliver(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	tr := NewLogTransport(zap.New(obs), "gmail")

	err := tr.Deliver(context.Background(), Envelope{
		Channel: types.ChannelEmail,
		Address: "john@test.com",
		Body:    "Order placed!",
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("message delivered").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %v", logs.All())
	}
	fields := entries[0].ContextMap()
	if fields["provider"] != "gmail" || fields["to"] != "john@test.com" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLogTransportHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewLogTransport(nil, "gmail").Deliver(ctx, Envelope{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Deliver(context.Background(), Envelope{Address: "a"})
	_ = r.Deliver(context.Background(), Envelope{Address: "b"})

	sent := r.Sent()
	if len(sent) != 2 || sent[1].Address != "b" {
		t.Fatalf("Sent = %v", sent)
	}
	sent[0].Address = "mutated"
	if r.Sent()[0].Address != "a" {
		t.Fatal("Sent must return a copy")
	}

	r.Err = errors.New("down")
	if err := r.Deliver(context.Background(), Envelope{}); err == nil {
		t.Fatal("expected configured error")
	}
}

// 需要本地 Redis：DISPATCHR_TEST_REDIS=localhost:6379
func TestRedisTransportRoundTrip(t *testing.T) {
	addr := os.Getenv("DISPATCHR_TEST_REDIS")
	if addr == "" {
		t.Skip("DISPATCHR_TEST_REDIS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := NewRedisTransport(ctx, addr, "", 0, "dispatchr_test")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	ch, err := tr.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Deliver(ctx, Envelope{Channel: types.ChannelSMS, Address: "+1", Body: "hi"}); err != nil {
		t.Fatal(err)
	}

	select {
	case env := <-ch:
		if env.Body != "hi" || env.ID == "" || env.SentAt.IsZero() {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}
