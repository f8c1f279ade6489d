// Package ui formats command output: resource tables and error reports.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/conduit-sdk/pkg/resource"
	"github.com/conduit-lang/conduit-sdk/pkg/transport"
)

// FormatError renders err for the terminal. API failures list every error
// item the server returned; SDK errors lead with their code.
//
// Example output:
//
//	✗ REQUEST FAILED: status 404
//	   NOT-FOUND (404) The resource could not be found.
//	      Order 42 does not exist.
func FormatError(err error, noColor bool) string {
	headerColor := color.New(color.FgRed, color.Bold)
	bodyColor := color.New(color.FgRed)
	detailColor := color.New(color.FgHiBlack)
	if noColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
		detailColor.DisableColor()
	}

	var b strings.Builder

	if reqErr, ok := transport.IsRequestError(err); ok {
		headerColor.Fprintf(&b, "✗ REQUEST FAILED: status %d\n", reqErr.StatusCode)
		for _, item := range reqErr.Items {
			bodyColor.Fprintf(&b, "   %s (%d) %s\n", item.Code, item.Status, item.Title)
			if item.Detail != "" {
				detailColor.Fprintf(&b, "      %s\n", item.Detail)
			}
		}
		return b.String()
	}

	var sdkErr *resource.Error
	if errors.As(err, &sdkErr) {
		headerColor.Fprintf(&b, "✗ %s\n", sdkErr.Code)
		bodyColor.Fprintf(&b, "   %s\n", sdkErr.Message)
		if sdkErr.Err != nil {
			detailColor.Fprintf(&b, "      %v\n", sdkErr.Err)
		}
		return b.String()
	}

	headerColor.Fprintf(&b, "✗ Error: %v\n", err)
	return b.String()
}

// WriteError writes a formatted error to w
func WriteError(w io.Writer, err error, noColor bool) {
	fmt.Fprint(w, FormatError(err, noColor))
}

// FormatSuccess renders a success line
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
