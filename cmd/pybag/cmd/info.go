package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Report statistics about an MCAP file",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		rows := [][]string{
			{"library:", reader.Header().Library},
			{"profile:", reader.Profile()},
		}
		stats := reader.Statistics()
		if stats != nil {
			rows = append(rows, []string{"messages:", fmt.Sprintf("%d", stats.MessageCount)})
			rows = append(rows, []string{"start:", formatDecimalTime(stats.MessageStartTime)})
			rows = append(rows, []string{"end:", formatDecimalTime(stats.MessageEndTime)})
			rows = append(rows, []string{"chunks:", fmt.Sprintf("%d", stats.ChunkCount)})
			rows = append(rows, []string{"attachments:", fmt.Sprintf("%d", stats.AttachmentCount)})
			rows = append(rows, []string{"metadata:", fmt.Sprintf("%d", stats.MetadataCount)})
		}
		formatTable(os.Stdout, rows)

		if chunkIndexes := reader.ChunkIndexes(); len(chunkIndexes) > 0 {
			var compressed, uncompressed uint64
			for _, ci := range chunkIndexes {
				compressed += ci.CompressedSize
				uncompressed += ci.UncompressedSize
			}
			ratio := 100 * (1 - float64(compressed)/float64(uncompressed))
			fmt.Printf("compression: %s/%s (%.2f%%)\n",
				humanBytes(uncompressed), humanBytes(compressed), ratio)
		}

		fmt.Println("channels:")
		channels := reader.Channels()
		ids := make([]uint16, 0, len(channels))
		for id := range channels {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		channelRows := make([][]string, 0, len(ids))
		for _, id := range ids {
			ch := channels[id]
			row := []string{fmt.Sprintf("\t(%d) %s", id, ch.Topic)}
			if stats != nil {
				row = append(row, fmt.Sprintf("%d msgs", stats.ChannelMessageCounts[id]))
			}
			if schema, err := reader.ChannelSchema(id); err == nil {
				row = append(row, fmt.Sprintf("[%s]", schema.Name))
			}
			channelRows = append(channelRows, row)
		}
		formatTable(os.Stdout, channelRows)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
