package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"golang.org/x/term"

	"retrohint/hintd/config"
)

var (
	styleTitle = color.Style{color.FgCyan, color.OpBold}
	styleKey   = color.Style{color.FgGray}
	styleValue = color.Style{color.FgWhite}
	styleWarn  = color.Style{color.FgYellow}
)

// colorize turns colour off when stdout is not a terminal (service logs)
func colorize() {
	color.Enable = term.IsTerminal(int(os.Stdout.Fd()))
}

func printBanner(w io.Writer, cfg *config.Config, a *Agent, logPath string) {
	colorize()

	usage := a.limiter.UsageStats()
	limit := "unlimited"
	if usage.Limit > 0 {
		limit = fmt.Sprintf("%d/%d used today", usage.Used, usage.Limit)
	}

	rows := [][2]string{
		{"config", cfg.Path()},
		{"provider", fmt.Sprintf("%s (%s)", a.provider.Name(), a.provider.Model())},
		{"limit", limit},
		{"request", strings.Join(cfg.Hotkeys.Request, " + ")},
		{"view", strings.Join(cfg.Hotkeys.View, " + ")},
		{"display", a.display.Technique().String()},
		{"log", logPath},
		{"usage", a.limiter.Path()},
	}
	if cfg.Web.Enabled {
		rows = append(rows, [2]string{"dashboard", fmt.Sprintf("http://localhost:%d", cfg.Web.Port)})
	}

	fmt.Fprintln(w, styleTitle.Sprint("AI hint daemon"))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", styleKey.Sprintf("%-10s", r[0]), styleValue.Sprint(r[1]))
	}
	if a.db == nil {
		fmt.Fprintln(w, styleWarn.Sprint("  usage history disabled (database unavailable)"))
	}
}
