package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

func newStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the tailnet peers",
		Long:  "Print the peers the provider sees through the tailscaled LocalAPI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status document")

	return cmd
}

func runStatus(cmd *cobra.Command, asJSON bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	status, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	return printStatus(out, status, time.Now())
}

func printStatus(out io.Writer, status *tailscale.Status, now time.Time) error {
	fmt.Fprintf(out, "Backend: %s", status.BackendState)
	if status.CurrentTailnet != nil && status.CurrentTailnet.Name != "" {
		fmt.Fprintf(out, "  Tailnet: %s", status.CurrentTailnet.Name)
	}
	fmt.Fprintln(out)

	peers := status.SortedPeers()
	if len(peers) == 0 {
		fmt.Fprintln(out, "No peers found")
		return nil
	}

	online := 0
	for _, p := range peers {
		if p.Online {
			online++
		}
	}
	fmt.Fprintf(out, "Peers: %d (%d online)\n\n", len(peers), online)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tOS\tSTATE\tADDRESS\tTAGS\tLAST WRITE")
	for _, p := range peers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.HostName,
			orDash(p.OS),
			peerState(p),
			orDash(firstIP(p.TailscaleIPs)),
			orDash(strings.Join(p.Tags, ",")),
			lastWrite(p, now))
	}
	return tw.Flush()
}

func peerState(p *tailscale.PeerStatus) string {
	switch {
	case p.Expired:
		return "expired"
	case !p.Online:
		return "offline"
	case p.ExitNode:
		return "exit-node"
	default:
		return "online"
	}
}

func firstIP(ips []string) string {
	if len(ips) == 0 {
		return ""
	}
	return ips[0]
}

func lastWrite(p *tailscale.PeerStatus, now time.Time) string {
	if p.NeverActive() {
		return "never"
	}
	return now.Sub(p.LastWrite).Truncate(time.Second).String() + " ago"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
