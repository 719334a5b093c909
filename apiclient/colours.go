package apiclient

import "fmt"

const (
	green      = "\033[32m"
	blue       = "\033[34m"
	cyan       = "\033[36m"
	yellow     = "\033[33m"
	magenta    = "\033[35m"
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

// displayMethod pads the method to a fixed width and, when colour is enabled, wraps it in its
// ANSI colour. Unknown methods are gray.
func displayMethod(method string, colour bool) string {
	padded := fmt.Sprintf("%-7s", method)
	if !colour {
		return padded
	}
	if c, ok := methodColors[method]; ok {
		return c + padded + resetColor
	}
	return gray + padded + resetColor
}
