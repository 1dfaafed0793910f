package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
)

var (
	attachmentName   string
	attachmentOutput string
	metadataName     string
)

var attachmentsCmd = &cobra.Command{
	Use:   "attachments [file]",
	Short: "List or extract attachments from an MCAP file",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		attachments, err := reader.Attachments(attachmentName)
		if err != nil {
			die("failed to read attachments: %s", err)
		}
		if attachmentOutput != "" {
			if len(attachments) == 0 {
				die("no attachment matched %q", attachmentName)
			}
			if err := os.WriteFile(attachmentOutput, attachments[0].Data, 0o644); err != nil {
				die("failed to write %s: %s", attachmentOutput, err)
			}
			return
		}
		rows := [][]string{{"name", "media type", "log time", "size"}}
		for _, a := range attachments {
			rows = append(rows, []string{
				a.Name,
				a.MediaType,
				formatDecimalTime(a.LogTime),
				humanBytes(uint64(len(a.Data))),
			})
		}
		formatTable(os.Stdout, rows)
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata [file]",
	Short: "List metadata records in an MCAP file",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		records, err := reader.Metadata(metadataName)
		if err != nil {
			die("failed to read metadata: %s", err)
		}
		for _, m := range records {
			fmt.Printf("%s:\n", m.Name)
			for k, v := range m.Metadata {
				fmt.Printf("\t%s: %s\n", k, v)
			}
		}
	},
}

func init() {
	attachmentsCmd.PersistentFlags().StringVarP(&attachmentName, "name", "n", "", "Only attachments with this name")
	attachmentsCmd.PersistentFlags().StringVarP(&attachmentOutput, "output", "o", "", "Write the first matching attachment to this path")
	metadataCmd.PersistentFlags().StringVarP(&metadataName, "name", "n", "", "Only metadata records with this name")
	rootCmd.AddCommand(attachmentsCmd)
	rootCmd.AddCommand(metadataCmd)
}
