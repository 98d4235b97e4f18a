package core

import "testing"

func TestInputFiresOnChangeOnly(t *testing.T) {
	bus := NewEventBus()
	in := NewInput(bus)

	var pressed, released int
	bus.Register(EVENT_CODE_KEY_PRESSED, &pressed, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		if KeyCode(data.Data.U16[0]) != KEY_W {
			t.Errorf("key = %#x", data.Data.U16[0])
		}
		pressed++
		return true
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, &released, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		released++
		return true
	})

	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	if pressed != 1 || !in.IsKeyDown(KEY_W) {
		t.Fatalf("pressed = %d", pressed)
	}
	in.Update()
	in.ProcessKey(KEY_W, false)
	if released != 1 || !in.WasKeyDown(KEY_W) || !in.IsKeyUp(KEY_W) {
		t.Fatalf("released = %d", released)
	}
}

func TestInputButtonCarriesPosition(t *testing.T) {
	bus := NewEventBus()
	in := NewInput(bus)

	var got [3]uint16
	bus.Register(EVENT_CODE_BUTTON_PRESSED, nil, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		copy(got[:], data.Data.U16[:3])
		return true
	})

	in.ProcessMouseMove(12, 34)
	in.ProcessButton(BUTTON_RIGHT, true)
	if got != [3]uint16{uint16(BUTTON_RIGHT), 12, 34} {
		t.Fatalf("event data = %v", got)
	}
	if x, y := in.MousePosition(); x != 12 || y != 34 || !in.IsButtonDown(BUTTON_RIGHT) {
		t.Fatalf("mouse = %d,%d", x, y)
	}
}
