package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPayout(w io.Writer, format string, p market.Payout) error {
	if format == "json" {
		return writeJSON(w, p)
	}
	_, err := fmt.Fprintf(w, "payout %s list=%s depositor=%s status=%s gross=%s commission=%s fees=%s net=%s\n",
		p.ID, p.ListID, p.DepositorID, p.Status,
		p.Gross.StringFixed(2), p.Commission.StringFixed(2), p.ListFees.StringFixed(2), p.Net.StringFixed(2))
	return err
}

func printSummary(w io.Writer, format string, s payout.Summary) error {
	if format == "json" {
		return writeJSON(w, s)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LIST\tDEPOSITOR\tPAYOUT\tOUTCOME\tSTATUS\tGROSS\tNET")
	for _, l := range s.Lists {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ListNumber, l.DepositorID, l.PayoutID, l.Outcome, l.Status, l.Gross.StringFixed(2), l.Net.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "edition %s: created=%d updated=%d skipped=%d gross=%s commission=%s fees=%s net=%s\n",
		s.EditionID, s.Created, s.Updated, s.Skipped,
		s.TotalGross.StringFixed(2), s.TotalCommission.StringFixed(2), s.TotalFees.StringFixed(2), s.TotalNet.StringFixed(2))
	return err
}
