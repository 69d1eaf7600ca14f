// ABOUTME: Text and JSON rendering of inspection reports
// ABOUTME: Used by the airwave-inspect command
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteText writes a human-readable table
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Frames: %d, fragments: %d, incomplete datagrams: %d, streams: %d\n\n",
		r.Frames, r.Fragments, r.Incomplete, len(r.Streams))
	if len(r.Streams) == 0 {
		_, err := fmt.Fprintln(w, "No airwave traffic found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tPACKETS\tMALFORMED\tWRONG SIZE\tREORDERED\tGAPS\tLOST\tLATENCY min/avg/max\tJITTER\tDURATION")
	for _, s := range r.Streams {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s/%s/%s\t%s\t%s\n",
			s.Source, s.Packets, s.Malformed, s.WrongSize, s.Reordered, s.Gaps, s.LostFrames,
			ms(s.MinLatency), ms(s.AvgLatency), ms(s.MaxLatency), ms(s.Jitter),
			s.Last.Sub(s.First).Round(time.Millisecond))
	}
	return tw.Flush()
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
