package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bozorlik/internal/catalog"
	"bozorlik/internal/shared"

	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and update the price catalog",
	}
	cmd.PersistentFlags().String("lang", shared.LangRU, "language of product names (ru, uz)")

	cmd.AddCommand(catalogLookupCmd())
	cmd.AddCommand(catalogSearchCmd())
	cmd.AddCommand(catalogImportHTMLCmd())
	return cmd
}

func langFlag(cmd *cobra.Command) (string, error) {
	lang, _ := cmd.Flags().GetString("lang")
	if !shared.IsSupportedLanguage(lang) {
		return "", fmt.Errorf("unsupported language %q", lang)
	}
	return lang, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

type lookupResult struct {
	Query     string             `json:"query"`
	ProductID string             `json:"product_id,omitempty"`
	MatchKind string             `json:"match_kind"`
	Price     *catalog.PriceInfo `json:"price_info"`
}

func catalogLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <product name>",
		Short: "Resolve a product name and estimate its price",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := langFlag(cmd)
			if err != nil {
				return err
			}
			quantity, _ := cmd.Flags().GetString("quantity")

			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			name := strings.Join(args, " ")
			res := lookupResult{Query: name, MatchKind: catalog.MatchNone.String()}
			if m, ok := cat.Resolve(name, lang); ok {
				res.ProductID = m.ID
				res.MatchKind = m.Kind.String()
			}
			res.Price = cat.Estimate(name, quantity, lang)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("quantity", "", "quantity text, e.g. \"2 кг\"")
	return cmd
}

func catalogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "List catalog entries matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := langFlag(cmd)
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			results := cat.Search(strings.Join(args, " "), lang, catalog.MaxSearchResults)
			if results == nil {
				results = []catalog.SearchResult{}
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}

func catalogImportHTMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-html <file or URL>",
		Short: "Append prices from an HTML price table to the catalog",
		Long: `Reads every table row of the form "product | price [| unit]" and adds one
price quote per row. Products the resolver does not know become new entries.
The merged catalog is written to --out (default: the configured catalog path).`,
		Args: cobra.ExactArgs(1),
		RunE: runCatalogImportHTML,
	}
	cmd.Flags().String("source", "", "quote source name (default: the file or host name)")
	cmd.Flags().String("out", "", "output catalog path")
	cmd.Flags().Bool("dry-run", false, "print statistics without writing")
	return cmd
}

func runCatalogImportHTML(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	lang, err := langFlag(cmd)
	if err != nil {
		return err
	}
	source, _ := cmd.Flags().GetString("source")
	out, _ := cmd.Flags().GetString("out")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	target := args[0]
	if source == "" {
		source = filepath.Base(target)
	}
	if out == "" {
		out = cfg.Catalog.Path
	}

	var body io.ReadCloser
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		body, err = catalog.FetchHTML(ctx, target)
	} else {
		body, err = os.Open(target)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	defer body.Close()

	base, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		slog.Warn("starting from an empty catalog", "path", cfg.Catalog.Path, "error", err)
		base = catalog.Empty()
	}

	merged, stats, err := catalog.ImportHTML(body, source, lang, base)
	if err != nil {
		return err
	}
	slog.Info("HTML import finished",
		"rows", stats.Rows,
		"matched", stats.Matched,
		"created", stats.Created,
		"skipped", stats.Skipped)

	if dryRun {
		return printJSON(cmd.OutOrStdout(), stats)
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	slog.Info("catalog written", "path", out, "products", merged.Len())
	return printJSON(cmd.OutOrStdout(), stats)
}
