package errors

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// DisplayError formats and displays an error on stderr with enhanced formatting
func DisplayError(err error) {
	color.NoColor = colorDisabled(os.Stderr)
	writeError(os.Stderr, err)
}

func writeError(w io.Writer, err error) {
	vErr, ok := err.(*VahtiError)
	if !ok {
		fmt.Fprintln(w, color.RedString("Error: %v", err))
		return
	}

	colorFunc := getErrorStyle(vErr.Type)

	fmt.Fprintf(w, "\n%s\n", colorFunc("%s", vErr.Message))

	if vErr.Target != "" {
		fmt.Fprintf(w, "   %s %s\n", color.CyanString("Target:"), vErr.Target)
	}

	if vErr.Cause != "" {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(vErr.Cause))
	}

	if vErr.Err != nil {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Detail:"), color.HiBlackString(vErr.Err.Error()))
	}

	if len(vErr.Solutions) > 0 {
		fmt.Fprintf(w, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range vErr.Solutions {
			fmt.Fprintf(w, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	if vErr.Help != "" {
		fmt.Fprintf(w, "\n   %s %s\n", color.MagentaString("Help:"), color.HiWhiteString(vErr.Help))
	}

	fmt.Fprintln(w)
}

// getErrorStyle returns the appropriate color function for an error type
func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeConfiguration:
		return color.YellowString
	case ErrorTypeStartup, ErrorTypeFetch:
		return color.RedString
	case ErrorTypeDelivery:
		return color.MagentaString
	default:
		return color.RedString
	}
}

// FormatErrorWithContext formats an error as plain text, for logs and CI output
func FormatErrorWithContext(err error, context map[string]string) string {
	var sb strings.Builder

	vErr, ok := err.(*VahtiError)
	if !ok {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", vErr.Message))
	sb.WriteString(fmt.Sprintf("Type: %s\n", vErr.Type))

	if vErr.Target != "" {
		sb.WriteString(fmt.Sprintf("Target: %s\n", vErr.Target))
	}

	if vErr.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", vErr.Cause))
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nContext:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, context[k]))
		}
	}

	if len(vErr.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for i, solution := range vErr.Solutions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
	}

	if vErr.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", vErr.Help))
	}

	return sb.String()
}

// DisplayWarning writes a warning line to w
func DisplayWarning(w io.Writer, message string) {
	color.NoColor = writerColorDisabled(w)
	fmt.Fprintf(w, "Warning: %s\n", color.YellowString(message))
}

// DisplaySuccess writes a success line to w
func DisplaySuccess(w io.Writer, message string) {
	color.NoColor = writerColorDisabled(w)
	fmt.Fprintf(w, "Success: %s\n", color.GreenString(message))
}

func writerColorDisabled(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return colorDisabled(f)
	}
	return true
}

// colorDisabled honours NO_COLOR, VAHTI_NO_COLOR, --no-color and non-terminal output
func colorDisabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("VAHTI_NO_COLOR") != "" {
		return true
	}
	if viper.IsSet("output.no_color") && viper.GetBool("output.no_color") {
		return true
	}
	return !term.IsTerminal(int(f.Fd()))
}
