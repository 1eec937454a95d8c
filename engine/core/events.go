package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS. Data: *SystemEvent
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A shader source changed on disk and was recompiled. Data: string (path)
	EVENT_CODE_SHADER_RELOADED SystemEventCode = 0x10

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type KeyCode uint16

const (
	KEY_ENTER  KeyCode = 0x0D
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_F1     KeyCode = 0x70
	KEY_F2     KeyCode = 0x71
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events synchronously to the listeners registered for a code.
type EventBus struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 * @param code The event code to listen for.
 * @param listener A listener instance, used to identify the registration.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (eb *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code `%d`", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if the registration was found and removed; otherwise false.
 */
func (eb *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (eb *EventBus) Fire(context EventContext) bool {
	eb.mutex.RLock()
	events := make([]*registeredEvent, len(eb.registered[context.Type]))
	copy(events, eb.registered[context.Type])
	eb.mutex.RUnlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (eb *EventBus) Shutdown() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.registered = make(map[SystemEventCode][]*registeredEvent)
}
