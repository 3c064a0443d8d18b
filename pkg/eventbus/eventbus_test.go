package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type created struct {
	id int64
}

type deleted struct {
	id int64
}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestMatchSignature(t *testing.T) {
	require.True(t, MatchSignature(func(*created) {}, []any{&created{}}))
	require.False(t, MatchSignature(func(*created) {}, []any{&deleted{}}))
	require.False(t, MatchSignature(func(*created) {}, []any{}))
	require.False(t, MatchSignature(func(*created) {}, []any{&created{}, &created{}}))
	require.True(t, MatchSignature(func(context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(any) {}, []any{&deleted{}}))
	require.False(t, MatchSignature("not a func", []any{&created{}}))
}

func TestPublisher_DispatchesByType(t *testing.T) {
	publisher := NewEventPublisher(logrus.New())
	var got []int64
	var all int
	publisher.Subscribe(func(e *created) { got = append(got, e.id) })
	publisher.Subscribe(func(any) { all++ })

	publisher.Publish(&created{id: 7})
	publisher.Publish(&deleted{id: 8})

	require.Equal(t, []int64{7}, got)
	require.Equal(t, 2, all)
	require.Equal(t, 2, publisher.SubscribersCount())
}

func TestPublisher_NilArgument(t *testing.T) {
	publisher := NewEventPublisher(nil)
	called := false
	publisher.Subscribe(func(e *created) {
		called = true
		require.Nil(t, e)
	})
	publisher.Publish(nil)
	require.True(t, called)
}

func TestPublisher_PanicRecovery(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	publisher := NewEventPublisher(log)

	var calls int
	publisher.Subscribe(func(*created) { calls++ })
	publisher.Subscribe(func(*created) { panic("boom") })
	publisher.Subscribe(func(*created) { calls++ })

	require.NotPanics(t, func() { publisher.Publish(&created{id: 1}) })
	require.Equal(t, 2, calls)
	require.Contains(t, buf.String(), "panicked")
	require.Contains(t, buf.String(), "boom")
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	publisher := NewEventPublisher(nil)
	handler := func(*created) {}
	publisher.Subscribe(handler)
	publisher.Subscribe(func(*deleted) {})

	publisher.Unsubscribe(handler)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	require.Equal(t, 0, publisher.SubscribersCount())
}

func TestPublisher_PublishE(t *testing.T) {
	t.Run("no subscribers", func(t *testing.T) {
		publisher := NewEventPublisher(nil).(EventBusWithError)
		require.ErrorIs(t, publisher.PublishE(&created{}), ErrNoSubscribers)
	})

	t.Run("joins handler errors", func(t *testing.T) {
		publisher := NewEventPublisher(nil).(EventBusWithError)
		err1, err2 := errors.New("err1"), errors.New("err2")
		publisher.Subscribe(func(*created) error { return err1 })
		publisher.Subscribe(func(*created) error { return err2 })

		err := publisher.PublishE(&created{})
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("panic becomes an error and later handlers run", func(t *testing.T) {
		publisher := NewEventPublisher(nil).(EventBusWithError)
		called := false
		publisher.Subscribe(func(*created) error { panic("boom") })
		publisher.Subscribe(func(*created) error { called = true; return nil })

		require.Error(t, publisher.PublishE(&created{}))
		require.True(t, called)
	})

	t.Run("bad return type", func(t *testing.T) {
		publisher := NewEventPublisher(nil).(EventBusWithError)
		publisher.Subscribe(func(*created) int { return 1 })
		require.ErrorIs(t, publisher.PublishE(&created{}), ErrInvalidHandlerReturn)
	})
}
