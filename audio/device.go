package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrPickerCancelled is returned when the user aborts the device picker.
var ErrPickerCancelled = errors.New("device selection cancelled")

// unnamedDevice labels devices the platform lists without a name.
const unnamedDevice = "Default microphone"

// SelectDevice lets the user pick the capture device to test. The cursor
// starts on the device named current, if listed. A single device is
// returned without prompting.
func SelectDevice(ctx Context, current string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, classify(fmt.Errorf("enumerate devices: %w", err))
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	i, err := pick(os.Stdin, os.Stdout, devices, current)
	if err != nil {
		return nil, err
	}
	return &devices[i], nil
}

func deviceLabel(d DeviceInfo) string {
	if d.Name == "" {
		return unnamedDevice
	}
	return d.Name
}

func renderDevices(out io.Writer, devices []DeviceInfo, cursor int, current string) {
	fmt.Fprint(out, "\r\x1b[J")
	fmt.Fprint(out, "Microphone to test (↑/↓ or j/k, Enter to confirm, q to cancel):\r\n\r\n")
	for i, d := range devices {
		tags := ""
		if d.Name != "" && d.Name == current {
			tags += " \x1b[2m(current)\x1b[0m"
		}
		if IsBluetooth(d.Name) {
			tags += " \x1b[33m[⚠ Bluetooth, lower quality]\x1b[0m"
		}
		if i == cursor {
			fmt.Fprintf(out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", deviceLabel(d), tags)
		} else {
			fmt.Fprintf(out, "    %s%s\r\n", deviceLabel(d), tags)
		}
	}
}

// pick runs the picker over raw terminal input and returns the chosen index.
func pick(in io.Reader, out io.Writer, devices []DeviceInfo, current string) (int, error) {
	cursor := 0
	for i, d := range devices {
		if d.Name != "" && d.Name == current {
			cursor = i
			break
		}
	}
	renderDevices(out, devices, cursor, current)

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, ErrPickerCancelled
			}
			return 0, fmt.Errorf("reading input: %w", err)
		}

		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Fprint(out, "\r\n")
			return cursor, nil
		case n == 1 && (buf[0] == 3 || buf[0] == 'q'):
			fmt.Fprint(out, "\r\n")
			return 0, ErrPickerCancelled
		case n == 1 && buf[0] == 'j', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			cursor = min(cursor+1, len(devices)-1)
		case n == 1 && buf[0] == 'k', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			cursor = max(cursor-1, 0)
		}

		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		renderDevices(out, devices, cursor, current)
	}
}
