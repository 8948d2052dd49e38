package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"

	"retrohint/hintd/input"
	"retrohint/hintd/platform"
)

const defaultDetectDevice = "/dev/input/event0"

var (
	stylePress   = color.Style{color.FgGreen, color.OpBold}
	styleRelease = color.Style{color.FgGray}
)

// runDetect prints the name of every button pressed on a controller, for
// writing the [hotkeys] section
func runDetect(args []string) int {
	colorize()

	path := defaultDetectDevice
	if len(args) > 0 {
		path = args[0]
	}

	dev, err := platform.OpenInputDevice(path)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			fmt.Fprintln(os.Stderr, "Raw input devices are not available on this system")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", path, err)
		}
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { dev.Close() })
	defer stop()
	defer dev.Close()

	fmt.Println(styleTitle.Sprintf("Listening on %s (%s)", path, dev.Name()))
	fmt.Println("Press buttons on the controller, Ctrl+C to quit.")

	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return 0
			}
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			return 1
		}

		switch {
		case ev.IsPress():
			fmt.Printf("%s  code=%d\n", stylePress.Sprintf("%-14s", input.ButtonName(ev.Code)), ev.Code)
		case ev.IsRelease():
			fmt.Println(styleRelease.Sprintf("%-14s released", input.ButtonName(ev.Code)))
		}
	}
}
