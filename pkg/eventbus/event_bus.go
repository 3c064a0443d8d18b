// Package eventbus dispatches domain events to handlers selected by their
// parameter types. A handler func(*task.UpdatedEvent) receives only that
// event; a handler taking an interface receives every event implementing it.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/proseed/proseed/pkg/serrors"
)

type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

// EventBusWithError reports handler failures to the publisher instead of
// logging them.
type EventBusWithError interface {
	EventBus
	PublishE(args ...any) error
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type subscriber struct {
	handler any
	fn      reflect.Value
}

type bus struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &bus{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			if param.Kind() != reflect.Interface && param.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		argType := reflect.TypeOf(arg)
		if param.Kind() == reflect.Interface {
			if !argType.Implements(param) {
				return false
			}
			continue
		}
		if !argType.AssignableTo(param) {
			return false
		}
	}
	return true
}

func (b *bus) matching(args []any) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []subscriber
	for _, s := range b.subscribers {
		if MatchSignature(s.handler, args) {
			out = append(out, s)
		}
	}
	return out
}

// call runs one handler, turning a panic into an error. A nil argument is
// passed as the zero value of the matching parameter.
func call(s subscriber, args []any) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", s.fn.Type(), r)
		}
	}()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(s.fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return s.fn.Call(in), nil
}

// Publish calls every matching handler. Handler panics are logged and do not
// stop the remaining handlers.
func (b *bus) Publish(args ...any) {
	handled := false
	for _, s := range b.matching(args) {
		if _, err := call(s, args); err != nil {
			if b.log != nil {
				b.log.WithField("args", args).Error(err.Error())
			}
			continue
		}
		handled = true
	}
	if !handled && b.log != nil {
		b.log.Debugf("eventbus.Publish: no matching subscribers for %T", firstArg(args))
	}
}

func (b *bus) PublishE(args ...any) error {
	subs := b.matching(args)
	if len(subs) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, s := range subs {
		out, err := call(s, args)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch {
		case len(out) == 0:
		case len(out) != 1 || out[0].Type() != errorType:
			errs = append(errs, fmt.Errorf("%w: handler %s", ErrInvalidHandlerReturn, s.fn.Type()))
		case !out[0].IsNil():
			errs = append(errs, out[0].Interface().(error))
		}
	}
	return errors.Join(errs...)
}

func (b *bus) Subscribe(handler any) {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriber{handler: handler, fn: fn})
	b.mu.Unlock()
}

// Unsubscribe removes handler. Functions are compared by code pointer, so
// two closures over the same literal are the same handler.
func (b *bus) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s.fn.Pointer() == ptr {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

func (b *bus) Clear() {
	b.mu.Lock()
	b.subscribers = nil
	b.mu.Unlock()
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
