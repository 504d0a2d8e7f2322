package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soochol/docsum/internal/extract"
)

func inspectCmd() *cobra.Command {
	var detectOnly bool
	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Summarize local files and print the results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			docs := make([]extract.Document, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				docs = append(docs, extract.Document{Name: filepath.Base(path), Content: f})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if detectOnly {
				out := make([]extract.Detection, len(docs))
				for i, d := range docs {
					out[i] = a.pipeline.Detect(d.Content)
				}
				return enc.Encode(out)
			}
			return enc.Encode(a.pipeline.ProcessBatch(cmd.Context(), docs))
		},
	}
	cmd.Flags().BoolVar(&detectOnly, "detect", false, "only report the detected MIME type and strategy")
	return cmd
}
