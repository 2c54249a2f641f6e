// SPDX-License-Identifier: Apache-2.0

package pipelinediff

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render writes rows as an aligned plain-text table to w.
func Render(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB 1\tJOB 2\tSTAGE\tCOMPONENT TYPE\tCOMPONENT 1\tCOMPONENT 2")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Job1, r.Job2, r.Stage, r.Type, r.Name1, r.Name2)
	}
	return tw.Flush()
}
