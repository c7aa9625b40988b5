package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer   io.Writer
	jsonMode bool
	bold     *color.Color
	success  *color.Color
	warning  *color.Color
	dim      *color.Color
}

// NewOutput reads the --json and --no-color flags of cmd.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	o := &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		bold:     color.New(color.Bold),
		success:  color.New(color.FgGreen),
		warning:  color.New(color.FgYellow),
		dim:      color.New(color.Faint),
	}
	if noColor || jsonMode {
		for _, c := range []*color.Color{o.bold, o.success, o.warning, o.dim} {
			c.DisableColor()
		}
	}
	return o
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as indented JSON.
func (o *Output) JSON(data any) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

// Println prints a message with newline.
func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.writer, args...)
}

// Bold prints a bold line.
func (o *Output) Bold(format string, args ...any) {
	fmt.Fprintln(o.writer, o.bold.Sprintf(format, args...))
}

// Success prints a green line.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintln(o.writer, o.success.Sprintf(format, args...))
}

// Warning prints a yellow line.
func (o *Output) Warning(format string, args ...any) {
	fmt.Fprintln(o.writer, o.warning.Sprintf(format, args...))
}

// Dim prints a faint line.
func (o *Output) Dim(format string, args ...any) {
	fmt.Fprintln(o.writer, o.dim.Sprintf(format, args...))
}

// Table starts an aligned table; call Flush when done.
func (o *Output) Table(headers ...any) *tabwriter.Writer {
	tw := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)
	if len(headers) > 0 {
		format := ""
		for range headers {
			format += "%v\t"
		}
		fmt.Fprintf(tw, format+"\n", headers...)
	}
	return tw
}
