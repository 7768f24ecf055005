// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/arbiter/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEvtType event.EventType = "test.event"

func TestEventBusSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe(event.VoteCastEventType)
	eb.Publish(event.NewEvent(testEvtType, 999))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		select {
		case evt := <-ch:
			assert.Equal(t, 999, evt.Data)
			assert.Equal(t, testEvtType, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
	select {
	case evt := <-otherCh:
		t.Fatalf("unexpected event: %v", evt)
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed")
	// Unknown IDs are ignored
	eb.Unsubscribe(testEvtType, subId+10)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var calls atomic.Int32
	done := make(chan struct{})
	eb.SubscribeFunc(event.ProposalEndedEventType, func(evt event.Event) {
		data, ok := evt.Data.(event.ProposalEndedEvent)
		if ok && data.ProposalID == 7 && calls.Add(1) == 1 {
			close(done)
		}
	})
	eb.Publish(event.NewEvent(
		event.ProposalEndedEventType,
		event.ProposalEndedEvent{ProposalID: 7},
	))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handler")
	}
	// Stop closes the subscriber so the handler goroutine exits
	eb.Stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestEventBusPublishAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	require.True(t, eb.PublishAsync(event.NewEvent(testEvtType, "async")))
	select {
	case evt := <-subCh:
		assert.Equal(t, "async", evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
	eb.Stop()
	assert.False(t, eb.PublishAsync(event.NewEvent(testEvtType, "late")))
	// Stopping twice is harmless
	eb.Stop()
}

type panicSubscriber struct {
	closed atomic.Bool
}

func (p *panicSubscriber) Deliver(event.Event) error {
	panic("boom")
}

func (p *panicSubscriber) Close() {
	p.closed.Store(true)
}

func TestEventBusFailingSubscriber(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	sub := &panicSubscriber{}
	eb.RegisterSubscriber(testEvtType, sub)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(event.NewEvent(testEvtType, 1))
	assert.True(t, sub.closed.Load())
	evt := <-subCh
	assert.Equal(t, 1, evt.Data)
	assert.Equal(t, float64(1), counterTotal(t, reg, "arbiter_event_delivery_errors_total"))
	count, err := testutil.GatherAndCount(reg, "arbiter_event_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	// The failed subscriber was dropped and only the channel remains
	eb.Publish(event.NewEvent(testEvtType, 2))
	<-subCh
	assert.True(t, sub.closed.Load())
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
