package cmd

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/bio"
	"github.com/siliconlad/pybag/mcap"
)

var (
	compressOutput    string
	compressChunkSize int64
	compressFormat    string
)

// compressCmd rewrites a file with the requested chunking and compression,
// carrying schemas, channels, messages, attachments, and metadata across.
var compressCmd = &cobra.Command{
	Use:   "compress [file]",
	Short: "Rewrite an MCAP file with chunk compression",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		if compressOutput == "" {
			die("supply an output path with -o")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		sink, err := bio.Create(compressOutput)
		if err != nil {
			die("failed to create %s: %s", compressOutput, err)
		}
		writer, err := mcap.NewWriter(sink, &mcap.WriterOptions{
			Profile:     reader.Profile(),
			ChunkSize:   compressChunkSize,
			Compression: mcap.CompressionFormat(compressFormat),
		})
		if err != nil {
			die("failed to create writer: %s", err)
		}

		for _, schema := range reader.Schemas() {
			if err := writer.WriteSchema(schema); err != nil {
				die("failed to write schema: %s", err)
			}
		}
		for _, channel := range reader.Channels() {
			if err := writer.WriteChannel(channel); err != nil {
				die("failed to write channel: %s", err)
			}
		}

		messages, err := reader.Messages(nil)
		if err != nil {
			die("failed to read messages: %s", err)
		}
		bar := progressbar.Default(int64(len(messages)), "compressing")
		for _, msg := range messages {
			if err := writer.WriteMessage(msg); err != nil {
				die("failed to write message: %s", err)
			}
			bar.Add(1)
		}

		attachments, err := reader.Attachments("")
		if err != nil {
			die("failed to read attachments: %s", err)
		}
		for _, a := range attachments {
			if err := writer.WriteAttachment(a); err != nil {
				die("failed to write attachment: %s", err)
			}
		}
		records, err := reader.Metadata("")
		if err != nil {
			die("failed to read metadata: %s", err)
		}
		for _, m := range records {
			if err := writer.WriteMetadata(m); err != nil {
				die("failed to write metadata: %s", err)
			}
		}

		if err := writer.Close(); err != nil {
			die("failed to close writer: %s", err)
		}
		if err := sink.Close(); err != nil {
			die("failed to close output: %s", err)
		}
	},
}

func init() {
	compressCmd.PersistentFlags().StringVarP(&compressOutput, "output", "o", "", "Output file path")
	compressCmd.PersistentFlags().Int64Var(&compressChunkSize, "chunk-size", 4*1024*1024, "Target chunk size in bytes")
	compressCmd.PersistentFlags().StringVar(&compressFormat, "compression", "zstd", "Chunk compression (none, lz4, zstd)")
	rootCmd.AddCommand(compressCmd)
}
