package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
)

// renderEntries prints a directory listing as a borderless table
func renderEntries(w io.Writer, entries []filesystem.EntryMetadata) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Flags", "Size", "Modified", "Type", "Name"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, e := range entries {
		table.Append([]string{
			e.Flags.String(),
			sizeColumn(e),
			formatMillis(e.LastModified),
			e.MIMEType,
			e.DisplayName,
		})
	}
	table.Render()
}

// renderEntry prints one entry as key/value lines
func renderEntry(w io.Writer, e filesystem.EntryMetadata) {
	fmt.Fprintf(w, "ID:        %s\n", e.ID)
	fmt.Fprintf(w, "Name:      %s\n", e.DisplayName)
	fmt.Fprintf(w, "Size:      %d\n", e.Size)
	fmt.Fprintf(w, "Modified:  %s\n", formatMillis(e.LastModified))
	fmt.Fprintf(w, "Type:      %s\n", e.MIMEType)
	fmt.Fprintf(w, "Flags:     %s\n", e.Flags)
}

func sizeColumn(e filesystem.EntryMetadata) string {
	if e.IsDir() {
		return "-"
	}
	return strconv.FormatInt(e.Size, 10)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}
