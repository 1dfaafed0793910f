package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func formatTable(w io.Writer, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnSeparator("")
	tw.AppendBulk(rows)
	tw.Render()
}

func humanBytes(numBytes uint64) string {
	prefixes := []string{"B", "KiB", "MiB", "GiB"}
	for index, p := range prefixes {
		displayed := float64(numBytes) / math.Pow(1024, float64(index))
		if displayed <= 1024 {
			return fmt.Sprintf("%.2f %s", displayed, p)
		}
	}
	last := len(prefixes) - 1
	return fmt.Sprintf("%.2f %s", float64(numBytes)/math.Pow(1024, float64(last)), prefixes[last])
}

func digits(n uint64) int {
	if n == 0 {
		return 1
	}
	count := 0
	for n != 0 {
		n /= 10
		count++
	}
	return count
}

// formatDecimalTime renders a nanosecond timestamp as seconds.nanoseconds.
func formatDecimalTime(t uint64) string {
	seconds := t / 1e9
	nanoseconds := t % 1e9
	buf := make([]byte, 0, digits(seconds)+1+9)
	buf = strconv.AppendUint(buf, seconds, 10)
	buf = append(buf, '.')
	for i := 0; i < 9-digits(nanoseconds); i++ {
		buf = append(buf, '0')
	}
	buf = strconv.AppendUint(buf, nanoseconds, 10)
	return string(buf)
}
