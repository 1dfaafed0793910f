package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
)

// doctorCmd walks the whole file with CRC checking enabled and reports
// structural problems.
var doctorCmd = &cobra.Command{
	Use:   "doctor [file]",
	Short: "Check an MCAP file for structural problems",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		warn := color.New(color.FgYellow).FprintfFunc()
		fail := color.New(color.FgRed).FprintfFunc()
		ok := color.New(color.FgGreen).FprintfFunc()
		out := color.Output

		reader, err := mcap.OpenFile(args[0], &mcap.ReaderOptions{ValidateCRC: true})
		if err != nil {
			fail(out, "failed to open: %s\n", err)
			return
		}
		defer reader.Close()

		problems := 0
		stats := reader.Statistics()
		if stats == nil {
			warn(out, "no statistics record; file has no summary section\n")
		}
		for id, channel := range reader.Channels() {
			if channel.SchemaID == 0 {
				continue
			}
			if _, err := reader.Schema(channel.SchemaID); err != nil {
				fail(out, "channel %d (%s) references missing schema %d\n",
					id, channel.Topic, channel.SchemaID)
				problems++
			}
		}
		messages, err := reader.Messages(nil)
		if err != nil {
			fail(out, "message iteration failed: %s\n", err)
			problems++
		} else if stats != nil && uint64(len(messages)) != stats.MessageCount {
			fail(out, "statistics claim %d messages, found %d\n",
				stats.MessageCount, len(messages))
			problems++
		}
		if problems == 0 {
			ok(out, "%s\n", fmt.Sprintf("%s: no problems found", args[0]))
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
