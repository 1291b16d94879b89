package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"atlas/internal/draft"
	"atlas/pkg/domain"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Read a supplement label photo",
		Long: `Read a supplement label photo and print what was extracted. With --save the
product and its supplements are added to the stack as extracted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), flags, appOptions{labels: true})
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.scanner.Scan(cmd.Context(), image)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printExtraction(out, entry)
			if !save {
				return nil
			}
			saved, err := a.scanner.Commit(cmd.Context(), a.svc, draft.FormFromDraft(entry))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSaved %s with %d supplements", saved.Product.Name, len(saved.Supplements))
			if saved.Skipped > 0 {
				fmt.Fprintf(out, " (%d skipped)", saved.Skipped)
			}
			fmt.Fprintln(out)
			for _, w := range saved.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Save the extracted product and supplements")
	return cmd
}

// readImage returns path as a data URL typed by its extension.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if typ, _, _ = strings.Cut(typ, ";"); !strings.HasPrefix(typ, "image/") {
		typ = "image/jpeg"
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func printExtraction(w io.Writer, e draft.Entry) {
	p := e.Product
	fmt.Fprintf(w, "Product: %s", p.Product.Name)
	if p.Product.Brand != "" {
		fmt.Fprintf(w, " (%s)", p.Product.Brand)
	}
	fmt.Fprintf(w, "\nCategory: %s\nConfidence: %.0f%%\n", p.Product.Category, p.Confidence)
	if p.Product.SuggestedUse != "" {
		fmt.Fprintf(w, "Suggested use: %s\n", p.Product.SuggestedUse)
	}
	fmt.Fprintln(w, "Supplements:")
	for _, s := range p.Supplements {
		fmt.Fprintf(w, "- %s: %s, %s, %s\n", s.Name, s.Dosage, s.Frequency, s.Timing)
	}
	review := domain.ValidateExtractedData(p)
	for _, msg := range review.Warnings {
		fmt.Fprintf(w, "Check: %s\n", msg)
	}
	for _, msg := range review.Suggestions {
		fmt.Fprintf(w, "Note: %s\n", msg)
	}
}
