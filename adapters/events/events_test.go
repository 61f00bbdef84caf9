package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/layer-3/rotor/core"
)

var at = time.Unix(1700000000, 0).UTC()

func denyEvent() core.Event {
	ev := core.Deny(fmt.Errorf("kid %q: %w", "old", core.ErrUnknownKey), at)
	ev.ID = "ev-1"
	return ev
}

func TestWatermillEmitterPublishesJSON(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), DefaultTopic)
	require.NoError(t, err)

	emitter := NewWatermillEmitter(pubSub, "")
	require.NoError(t, emitter.Emit(context.Background(), denyEvent()))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "ev-1", msg.UUID)
		assert.Equal(t, "deny", msg.Metadata.Get("decision"))

		var got core.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, core.DecisionDeny, got.Decision)
		assert.Equal(t, core.ReasonUnknownKey, got.Kind)
		assert.Contains(t, got.Reason, `kid "old"`)
		assert.True(t, at.Equal(got.Time))
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestWatermillEmitterAssignsID(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), "custom.topic")
	require.NoError(t, err)

	require.NoError(t, NewWatermillEmitter(pubSub, "custom.topic").Emit(context.Background(), core.Allow("u1", at)))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.NotEmpty(t, msg.UUID)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestWatermillEmitterRedisStream(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, watermill.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, NewWatermillEmitter(publisher, DefaultTopic).Emit(context.Background(), denyEvent()))

	entries, err := client.XRange(context.Background(), DefaultTopic, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	payload, ok := entries[0].Values["payload"].(string)
	require.True(t, ok)

	var got core.Event
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, "ev-1", got.ID)
	assert.Equal(t, core.DecisionDeny, got.Decision)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                              { return nil }

func TestWatermillEmitterPublishError(t *testing.T) {
	err := NewWatermillEmitter(failingPublisher{}, "").Emit(context.Background(), denyEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestMetricsCountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "rotor-svc", prometheus.Labels{"service": "rotor"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Emit(ctx, core.Allow("u1", at)))
	require.NoError(t, m.Emit(ctx, core.Allow("u2", at)))
	require.NoError(t, m.Emit(ctx, denyEvent()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("allow", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("deny", core.ReasonUnknownKey)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "rotor_svc_refresh_decisions_total")
}

func TestMetricsCacheObserver(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry(), "", nil)
	require.NoError(t, err)

	observe := m.CacheObserver("jwks")
	observe("https://issuer.example", nil)
	observe("https://issuer.example", errors.New("timeout"))
	observe("https://issuer.example", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRefreshes.WithLabelValues("jwks", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRefreshes.WithLabelValues("jwks", ResultFailure)))
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg, "rotor", nil)
	require.NoError(t, err)

	_, err = NewMetrics(reg, "rotor", nil)
	assert.Error(t, err)
}

func TestMetricNamespace(t *testing.T) {
	assert.Equal(t, DefaultNamespace, MetricNamespace(""))
	assert.Equal(t, "Custom_Identity", MetricNamespace("Custom-Identity"))
	assert.Equal(t, "a_b_c", MetricNamespace("a.b c"))
}

func TestLogEmitter(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	emitter := NewLogEmitter(zap.New(obs))

	require.NoError(t, emitter.Emit(context.Background(), core.Allow("u1", at)))
	require.NoError(t, emitter.Emit(context.Background(), denyEvent()))

	allowed := logs.FilterMessage("refresh allowed").All()
	require.Len(t, allowed, 1)
	assert.Equal(t, "u1", allowed[0].ContextMap()["subject"])

	denied := logs.FilterMessage("refresh denied").All()
	require.Len(t, denied, 1)
	assert.Equal(t, core.ReasonUnknownKey, denied[0].ContextMap()["kind"])
	assert.Contains(t, denied[0].ContextMap()["reason"], "kid not in jwks")
}

type recordingEmitter struct {
	events []core.Event
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, event core.Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	obs, logs := observer.New(zap.ErrorLevel)
	failing := &recordingEmitter{err: errors.New("broker down")}
	healthy := &recordingEmitter{}

	fanout := NewFanout(zap.New(obs), failing, nil, healthy)
	require.NoError(t, fanout.Emit(context.Background(), denyEvent()))

	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to emit event").Len())
}
