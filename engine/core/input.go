package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key codes follow the Windows virtual key values.
type KeyCode uint16

const (
	KEY_ENTER  KeyCode = 0x0D
	KEY_SHIFT  KeyCode = 0x10
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_LEFT   KeyCode = 0x25
	KEY_UP     KeyCode = 0x26
	KEY_RIGHT  KeyCode = 0x27
	KEY_DOWN   KeyCode = 0x28

	KEY_A KeyCode = 0x41
	KEY_D KeyCode = 0x44
	KEY_E KeyCode = 0x45
	KEY_Q KeyCode = 0x51
	KEY_S KeyCode = 0x53
	KEY_W KeyCode = 0x57

	KEY_F1 KeyCode = 0x70
	KEY_F2 KeyCode = 0x71

	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Mouse state structure
type MouseState struct {
	X       uint16
	Y       uint16
	Buttons [BUTTON_MAX_BUTTONS]bool // button states (pressed/released)
}

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input holds the current and previous keyboard and mouse states and turns
// state changes into events on its bus. It is fed by the producer goroutine,
// from a window or from a scripted source when running headless.
type Input struct {
	bus              *EventBus
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
}

func NewInput(bus *EventBus) *Input {
	return &Input{bus: bus}
}

// Update copies the current states to the previous ones. Call it once per
// frame, after everything that reads input.
func (in *Input) Update() {
	in.KeyboardPrevious = in.KeyboardCurrent
	in.MousePrevious = in.MouseCurrent
}

// keyboard input
func (in *Input) IsKeyDown(key KeyCode) bool {
	return in.KeyboardCurrent.Keys[key]
}

func (in *Input) IsKeyUp(key KeyCode) bool {
	return !in.KeyboardCurrent.Keys[key]
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return in.KeyboardPrevious.Keys[key]
}

func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	// Only handle this if the state actually changed.
	if in.KeyboardCurrent.Keys[key] == pressed {
		return
	}
	in.KeyboardCurrent.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	in.bus.Fire(code, in, ctx)
}

// mouse input
func (in *Input) IsButtonDown(button Button) bool {
	return in.MouseCurrent.Buttons[button]
}

func (in *Input) WasButtonDown(button Button) bool {
	return in.MousePrevious.Buttons[button]
}

func (in *Input) MousePosition() (uint16, uint16) {
	return in.MouseCurrent.X, in.MouseCurrent.Y
}

func (in *Input) ProcessButton(button Button, pressed bool) {
	if in.MouseCurrent.Buttons[button] == pressed {
		return
	}
	in.MouseCurrent.Buttons[button] = pressed

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(button)
	ctx.Data.U16[1] = in.MouseCurrent.X
	ctx.Data.U16[2] = in.MouseCurrent.Y
	in.bus.Fire(code, in, ctx)
}

func (in *Input) ProcessMouseMove(x, y uint16) {
	in.MouseCurrent.X = x
	in.MouseCurrent.Y = y
}
