package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
)

var channelsCmd = &cobra.Command{
	Use:   "channels [file]",
	Short: "List channels in an MCAP file",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		channels := reader.Channels()
		ids := make([]uint16, 0, len(channels))
		for id := range channels {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		rows := [][]string{{"id", "schema id", "topic", "encoding"}}
		for _, id := range ids {
			ch := channels[id]
			rows = append(rows, []string{
				fmt.Sprintf("%d", ch.ID),
				fmt.Sprintf("%d", ch.SchemaID),
				ch.Topic,
				ch.MessageEncoding,
			})
		}
		formatTable(os.Stdout, rows)
	},
}

var schemasCmd = &cobra.Command{
	Use:   "schemas [file]",
	Short: "List schemas in an MCAP file",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		schemas := reader.Schemas()
		ids := make([]uint16, 0, len(schemas))
		for id := range schemas {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		rows := [][]string{{"id", "name", "encoding", "size"}}
		for _, id := range ids {
			s := schemas[id]
			rows = append(rows, []string{
				fmt.Sprintf("%d", s.ID),
				s.Name,
				s.Encoding,
				humanBytes(uint64(len(s.Data))),
			})
		}
		formatTable(os.Stdout, rows)
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(schemasCmd)
}
