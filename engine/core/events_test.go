package core

import "testing"

func TestEventBusFireStopsWhenHandled(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "first")
		return data.Data.U32[0] == 1
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "second")
		return true
	}

	a, b := new(int), new(int)
	if !bus.Register(EVENT_CODE_PICK, a, first) || !bus.Register(EVENT_CODE_PICK, b, second) {
		t.Fatal("registration failed")
	}
	if bus.Register(EVENT_CODE_PICK, a, first) {
		t.Fatal("duplicate listener accepted")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 1
	if !bus.Fire(EVENT_CODE_PICK, nil, ctx) {
		t.Fatal("event not handled")
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want only first", calls)
	}

	calls = nil
	ctx.Data.U32[0] = 0
	bus.Fire(EVENT_CODE_PICK, nil, ctx)
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want both", calls)
	}

	if !bus.Unregister(EVENT_CODE_PICK, a) || bus.Unregister(EVENT_CODE_PICK, a) {
		t.Fatal("unregister misbehaved")
	}
	if bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}) {
		t.Fatal("event without listeners reported handled")
	}
}
