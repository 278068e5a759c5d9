package ansicolor

import (
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
)

// See this file for a good color reference:
// https://github.com/fatih/color/blob/master/color.go

var Reset = "\033[0m"
var Bold = "\033[1m"
var Faint = "\033[2m"

var Red = "\033[31m"
var Green = "\033[32m"
var Yellow = "\033[33m"
var Blue = "\033[34m"
var Gray = "\033[37m"

var BgRed = "\033[41m"
var BgYellow = "\033[43m"
var BgBlue = "\033[44m"

func init() {
	if runtime.GOOS == "windows" || !isatty.IsTerminal(os.Stderr.Fd()) {
		Disable()
	}
}

// Disable blanks every escape sequence, e.g. when stderr is redirected to a file.
func Disable() {
	Reset = ""
	Bold = ""
	Faint = ""
	Red = ""
	Green = ""
	Yellow = ""
	Blue = ""
	Gray = ""
	BgRed = ""
	BgYellow = ""
	BgBlue = ""
}
