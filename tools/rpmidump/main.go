// Command rpmidump renders a captured RPMI shared-memory queue dump
// (a raw binary snapshot of a smq_tx/smq_rx region) as a table: slot
// index, service group, service id, message type, token and payload
// length, for offline debugging without real hardware — the host-side
// complement to package rpmi's wire codec, per SPEC_FULL.md §B.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func main() {
	var slotSize, slotCount int

	root := &cobra.Command{
		Use:   "rpmidump <dump-file>",
		Short: "Decode and pretty-print a captured RPMI shared-memory queue dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			head, tail, records, err := Decode(buf, slotSize, slotCount)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "head = %d, tail = %d\n\n", head, tail)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"slot", "", "group", "service", "type", "token", "len"})
			for _, r := range records {
				marker := ""
				switch {
				case r.IsHead && r.IsTail:
					marker = "head,tail"
				case r.IsHead:
					marker = "head"
				case r.IsTail:
					marker = "tail"
				}
				table.Append([]string{
					strconv.Itoa(r.Slot),
					marker,
					fmt.Sprintf("0x%04x", r.ServiceGroup),
					strconv.Itoa(int(r.ServiceID)),
					typeName(r.Type),
					strconv.Itoa(int(r.Token)),
					strconv.Itoa(int(r.PayloadLen)),
				})
			}
			table.Render()
			return nil
		},
	}

	root.Flags().IntVar(&slotSize, "slot-size", 64, "bytes per queue slot")
	root.Flags().IntVar(&slotCount, "slot-count", 16, "total slot count, including the 2 head/tail slots")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rpmidump: %s\n", err)
		os.Exit(1)
	}
}
