package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, ChannelPrefix+KindWithdrawalCode)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewRedisNotifier(client)
	n.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	if err := n.Send(ctx, Message{Kind: KindWithdrawalCode, Destination: "3001", Body: "code 123456"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Message
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Destination != "3001" || got.Body != "code 123456" || !got.SentAt.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected message %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message published")
	}
}

type failing struct{}

func (failing) Send(context.Context, Message) error { return errors.New("gateway down") }

type counting struct{ n int }

func (c *counting) Send(context.Context, Message) error {
	c.n++
	return nil
}

func TestFanoutDeliversToAll(t *testing.T) {
	c := &counting{}
	err := Fanout{failing{}, c}.Send(context.Background(), Message{Kind: KindDeposit})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if c.n != 1 {
		t.Fatalf("later notifiers must still run, got %d sends", c.n)
	}
}
