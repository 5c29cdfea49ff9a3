package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"compliance-backend/internal/apiclient"
	"compliance-backend/internal/importer"
	"compliance-backend/internal/uploader"
)

type options struct {
	profilePath string
	baseURL     string
	token       string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Manage driver compliance documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.profilePath, "profile", defaultProfilePath(), "Profile file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides profile)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bearer token (overrides profile)")

	cmd.AddCommand(importCmd(opts), uploadCmd(opts), scanCmd(opts), creditsCmd(opts))
	return cmd
}

func (o *options) client() (*apiclient.Client, error) {
	p, err := loadProfile(o.profilePath)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		p.BaseURL = o.baseURL
	}
	if o.token != "" {
		p.Token = o.token
	}
	return apiclient.New(p.BaseURL, p.Token, &http.Client{Timeout: p.Timeout})
}

func importCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create drivers from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return runImport(cmd.Context(), cmd.OutOrStdout(), client, f)
		},
	}
}

func runImport(ctx context.Context, out io.Writer, creator importer.DriverCreator, r io.Reader) error {
	im := &importer.Importer{Creator: creator}
	res, rows, err := im.Import(ctx, r)
	if err != nil {
		for _, row := range rows {
			if !row.Valid {
				fmt.Fprintf(out, "row %d: %s\n", row.RowNumber, strings.Join(row.Errors, "; "))
			}
		}
		return err
	}

	fmt.Fprintf(out, "imported %d drivers\n", len(res.Successful))
	for _, f := range res.Failed {
		fmt.Fprintf(out, "row %d: %s %s\n", f.Row.RowNumber, f.Reason, f.Error)
	}
	if res.LimitReached {
		fmt.Fprintln(out, "driver limit reached; upgrade the plan to import the remaining rows")
	}
	return nil
}

func uploadCmd(opts *options) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "upload <driverId> <file>...",
		Short: "Upload documents for a driver",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			files, err := localFiles(args[1:])
			if err != nil {
				return err
			}
			batch := uploader.NewBatch(client, uploader.New(nil), args[0])
			if concurrency > 0 {
				batch.Concurrency = concurrency
			}
			return runUpload(cmd.Context(), cmd.OutOrStdout(), batch, files)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel uploads")
	return cmd
}

func runUpload(ctx context.Context, out io.Writer, batch *uploader.Batch, files []uploader.File) error {
	batch.Add(files...)
	failed := 0
	for _, st := range batch.Run(ctx) {
		if st.State == uploader.StateUploaded {
			fmt.Fprintf(out, "%s\tuploaded\t%s\n", st.Name, st.DocumentID)
			continue
		}
		failed++
		fmt.Fprintf(out, "%s\t%s\t%v\n", st.Name, st.State, st.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}

func localFiles(paths []string) ([]uploader.File, error) {
	out := make([]uploader.File, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		path := p
		out = append(out, uploader.File{
			ID:          path,
			Name:        filepath.Base(path),
			ContentType: contentTypeFor(path),
			Size:        info.Size(),
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return out, nil
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
		return ct
	}
	return "application/octet-stream"
}

func scanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <documentId>...",
		Short: "Run AI extraction on uploaded documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			res, err := client.ScanMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range res.Results {
				if !r.Success {
					fmt.Fprintf(out, "%s\tfailed\t%s\n", r.DocumentID, r.Error)
					continue
				}
				var typ, expiry string
				if r.ExtractedData != nil {
					typ, expiry = r.ExtractedData.Type, r.ExtractedData.ExpiryDate
				}
				fmt.Fprintf(out, "%s\tok\t%s\t%s\n", r.DocumentID, typ, expiry)
			}
			fmt.Fprintf(out, "credits used %d, remaining %d\n", res.TotalCreditsUsed, res.CreditsRemaining)
			return nil
		},
	}
}

func creditsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "credits",
		Short: "Show the company's AI scan credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			bal, err := client.Credits(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", bal)
			return nil
		},
	}
}
