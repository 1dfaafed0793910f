package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
	"github.com/siliconlad/pybag/ros2msg"
)

var (
	catTopics   string
	catStart    uint64
	catEnd      uint64
	catReverse  bool
	catOrdered  bool
	catFormatJS bool
)

// decodedSchemas caches parsed schemas by schema ID for JSON output.
type decodedSchemas struct {
	parser  *ros2msg.Parser
	schemas map[uint16]*ros2msg.Schema
	subs    map[uint16]map[string]*ros2msg.Schema
}

func newDecodedSchemas() *decodedSchemas {
	return &decodedSchemas{
		parser:  ros2msg.NewParser(),
		schemas: make(map[uint16]*ros2msg.Schema),
		subs:    make(map[uint16]map[string]*ros2msg.Schema),
	}
}

func (d *decodedSchemas) decode(schema *mcap.Schema, data []byte) (map[string]any, error) {
	parsed, ok := d.schemas[schema.ID]
	if !ok {
		var err error
		var subs map[string]*ros2msg.Schema
		parsed, subs, err = d.parser.Parse(schema.Name, schema.Data)
		if err != nil {
			return nil, err
		}
		d.schemas[schema.ID] = parsed
		d.subs[schema.ID] = subs
	}
	return ros2msg.DecodeMessage(parsed, d.subs[schema.ID], data)
}

var catCmd = &cobra.Command{
	Use:   "cat [file]",
	Short: "Print messages from an MCAP file to stdout",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("supply a file")
		}
		reader, err := mcap.OpenFile(args[0], nil)
		if err != nil {
			die("failed to open %s: %s", args[0], err)
		}
		defer reader.Close()

		query := &mcap.MessageQuery{
			InLogTimeOrder: catOrdered,
			Reverse:        catReverse,
		}
		if catTopics != "" {
			for _, topic := range strings.Split(catTopics, ",") {
				id, err := reader.ChannelIDByTopic(topic)
				if err != nil {
					die("%s", err)
				}
				query.ChannelIDs = append(query.ChannelIDs, id)
			}
		}
		if catStart > 0 {
			query.StartTime = &catStart
		}
		if catEnd > 0 {
			query.EndTime = &catEnd
		}

		messages, err := reader.Messages(query)
		if err != nil {
			die("failed to read messages: %s", err)
		}
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		decoded := newDecodedSchemas()
		for _, msg := range messages {
			channel, err := reader.Channel(msg.ChannelID)
			if err != nil {
				die("%s", err)
			}
			if !catFormatJS {
				fmt.Fprintf(w, "%s %s [%d]: %d bytes\n",
					formatDecimalTime(msg.LogTime), channel.Topic, msg.Sequence, len(msg.Data))
				continue
			}
			schema, err := reader.ChannelSchema(msg.ChannelID)
			if err != nil {
				die("%s", err)
			}
			tree, err := decoded.decode(schema, msg.Data)
			if err != nil {
				// fall back to raw byte count on decode failure
				fmt.Fprintf(w, "%s %s [%d]: <%d raw bytes: %s>\n",
					formatDecimalTime(msg.LogTime), channel.Topic, msg.Sequence, len(msg.Data), err)
				continue
			}
			encoded, err := json.Marshal(tree)
			if err != nil {
				die("failed to marshal message: %s", err)
			}
			fmt.Fprintf(w, "%s %s [%d]: %s\n",
				formatDecimalTime(msg.LogTime), channel.Topic, msg.Sequence, encoded)
		}
	},
}

func init() {
	catCmd.PersistentFlags().StringVar(&catTopics, "topics", "", "Comma-separated list of topics")
	catCmd.PersistentFlags().Uint64Var(&catStart, "start", 0, "Start time (ns, inclusive)")
	catCmd.PersistentFlags().Uint64Var(&catEnd, "end", 0, "End time (ns, inclusive)")
	catCmd.PersistentFlags().BoolVar(&catOrdered, "in-time-order", false, "Sort output by log time")
	catCmd.PersistentFlags().BoolVar(&catReverse, "reverse", false, "Iterate in reverse order")
	catCmd.PersistentFlags().BoolVar(&catFormatJS, "json", false, "Decode CDR payloads to JSON")
	rootCmd.AddCommand(catCmd)
}
