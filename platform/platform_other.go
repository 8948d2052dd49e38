//go:build !linux

package platform

// OpenInputDevice is only implemented for Linux evdev
func OpenInputDevice(path string) (InputDevice, error) {
	return nil, ErrUnsupported
}

// VTConsole is only implemented for Linux virtual terminals
type VTConsole struct{}

func NewConsole(device string) *VTConsole {
	return &VTConsole{}
}

func (c *VTConsole) ActiveVT() (int, error) {
	return 0, ErrUnsupported
}

func (c *VTConsole) Activate(vt int) error {
	return ErrUnsupported
}

func stopProcess(pid int) error {
	return ErrUnsupported
}

func resumeProcess(pid int) error {
	return ErrUnsupported
}
