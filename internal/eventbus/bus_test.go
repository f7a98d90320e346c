package eventbus

import "testing"

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := New()

	var order []string
	bus.Subscribe(NewContext, func(Event) { order = append(order, "first") })
	bus.Subscribe(NewContext, func(Event) { order = append(order, "second") })
	bus.Subscribe(NewContext, func(Event) { order = append(order, "third") })

	bus.Publish(NewContextEvent{})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("delivered to %d subscribers, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPublishOnlyMatchingName(t *testing.T) {
	bus := New()

	var got int
	bus.Subscribe(ClearMessages, func(Event) { got++ })

	bus.Publish(NewContextEvent{})
	bus.Publish(ClearMessagesEvent{})

	if got != 1 {
		t.Errorf("handler invoked %d times, want 1", got)
	}
}

func TestSubscriptionClose(t *testing.T) {
	bus := New()

	var got int
	sub := bus.Subscribe(NewBranch, func(Event) { got++ })

	bus.Publish(NewBranchEvent{Index: 0})
	sub.Close()
	sub.Close() // second close is a no-op
	bus.Publish(NewBranchEvent{Index: 0})

	if got != 1 {
		t.Errorf("handler invoked %d times after close, want 1", got)
	}
}

func TestPublishCarriesTypedPayload(t *testing.T) {
	bus := New()

	var model string
	bus.Subscribe(RegenerateMessage, func(evt Event) {
		regen, ok := evt.(RegenerateMessageEvent)
		if !ok {
			t.Fatalf("payload type = %T, want RegenerateMessageEvent", evt)
		}
		model = regen.Model
	})

	bus.Publish(RegenerateMessageEvent{Model: "claude-sonnet"})

	if model != "claude-sonnet" {
		t.Errorf("model = %q, want %q", model, "claude-sonnet")
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	bus := New()
	// best-effort delivery: publishing into the void must not panic
	bus.Publish(EstimatedTokenCountEvent{Tokens: 42, ContextCount: 3})
}
