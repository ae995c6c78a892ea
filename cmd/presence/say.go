package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studybuddy/presence/internal/httpc"
)

const defaultAddr = "http://localhost:8090"

func newSayCmd() *cobra.Command {
	var addr, audioURL string

	cmd := &cobra.Command{
		Use:   "say [text...]",
		Short: "Ask a running engine to speak",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"text": strings.Join(args, " ")}
			if audioURL != "" {
				body["audio_url"] = audioURL
			}
			if err := httpc.PostJSON(cmd.Context(), nil, apiURL(addr, "/api/speak"), body, nil); err != nil {
				return fmt.Errorf("speak: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🗣️  sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "engine base URL")
	cmd.Flags().StringVar(&audioURL, "audio", "", "narration audio URL")
	return cmd
}

func newStateCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the engine's current presentational state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var state json.RawMessage
			if err := httpc.GetJSON(cmd.Context(), nil, apiURL(addr, "/api/state"), &state); err != nil {
				return fmt.Errorf("state: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "engine base URL")
	return cmd
}

func apiURL(addr, path string) string {
	return strings.TrimRight(addr, "/") + path
}
