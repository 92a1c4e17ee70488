package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/memohai/promptdeck/internal/client"
	"github.com/memohai/promptdeck/internal/evaluation"
	"github.com/memohai/promptdeck/internal/handlers"
	"github.com/memohai/promptdeck/internal/logger"
	"github.com/memohai/promptdeck/internal/media"
)

func newClient() *client.Client {
	return client.New(logger.New(os.Stderr, "warn", "text"), serverURL, nil)
}

func newGenerateCommand() *cobra.Command {
	var (
		model  string
		system string
		attach []string
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Stream a generation from the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := promptArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			attachments, err := readAttachments(attach)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			res, err := newClient().Generate(cmd.Context(), handlers.GenerateRequest{
				Model:        model,
				SystemPrompt: system,
				UserPrompt:   prompt,
				Attachments:  attachments,
			}, func(chunk string) {
				_, _ = io.WriteString(out, chunk)
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "first chunk %s, total %s\n", res.FirstChunk.Round(time.Millisecond), res.Total.Round(time.Millisecond))
			}
			if res.Dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d malformed frames skipped, output may be incomplete\n", res.Dropped)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model id (required)")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt")
	cmd.Flags().StringSliceVarP(&attach, "attach", "a", nil, "file to attach (image, PDF or text); repeatable")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print timing")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newEvaluateCommand() *cobra.Command {
	var (
		model string
		file  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an interview transcript read from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			transcript, err := io.ReadAll(src)
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			result, _, err := newClient().Evaluate(cmd.Context(), handlers.EvaluateRequest{
				Transcript: string(transcript),
				Model:      model,
			}, nil)
			if err != nil {
				var parseErr *evaluation.ParseError
				if errors.As(err, &parseErr) {
					fmt.Fprintln(cmd.ErrOrStderr(), "could not parse evaluation; raw output follows")
					fmt.Fprintln(cmd.OutOrStdout(), parseErr.Raw)
				}
				return err
			}
			printEvaluation(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "override the configured evaluation model")
	cmd.Flags().StringVarP(&file, "file", "f", "", "transcript file (default stdin)")
	return cmd
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models known to LM Studio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := newClient().Models(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tLOADED\tCONTEXT")
			for _, m := range items {
				loaded := ""
				if m.Loaded {
					loaded = "yes"
				}
				ctx := ""
				if m.MaxContextLength > 0 {
					ctx = fmt.Sprint(m.MaxContextLength)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, loaded, ctx)
			}
			return tw.Flush()
		},
	}
}

func promptArg(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// readAttachments encodes local files as data URIs. The MIME type is sniffed
// from content and falls back to the file extension.
func readAttachments(paths []string) ([]media.Input, error) {
	out := make([]media.Input, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		mime := mimetype.Detect(raw).String()
		if i := strings.Index(mime, ";"); i >= 0 {
			mime = mime[:i]
		}
		if byExt := extensionMIME(p); byExt != "" && (mime == "application/octet-stream" || mime == "text/plain") {
			mime = byExt
		}
		out = append(out, media.Input{
			Data:     media.EncodeDataURI(mime, raw),
			MimeType: mime,
			Name:     filepath.Base(p),
			Size:     int64(len(raw)),
		})
	}
	return out, nil
}

func extensionMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}

func printEvaluation(w io.Writer, r evaluation.Result) {
	fmt.Fprintf(w, "総合評価: %.1f/10 (%s)\n\n", r.OverallScore, evaluation.ScoreBand(r.OverallScore))
	for _, c := range r.Categories.Ordered() {
		fmt.Fprintf(w, "%s: %.1f (%s)\n  %s\n", c.Label, c.Score, evaluation.ScoreBand(c.Score), c.Feedback)
	}
	printList(w, "強み", r.Strengths)
	printList(w, "改善点", r.AreasForImprovement)
	fmt.Fprintf(w, "\n推奨事項:\n  %s\n", r.Recommendation)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
