package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
)

// knowledgeBase is what the commands need from a retriever.
type knowledgeBase interface {
	Initialize(ctx context.Context) error
	Rebuild(ctx context.Context) error
	AddDocument(ctx context.Context, doc kb.Document) error
	GetBestAnswer(ctx context.Context, question string, threshold float32) kb.Answer
	Documents() []kb.Document
	Count() int
	Backend() string
	Close() error
}

type opener func() (knowledgeBase, error)

// withKB opens the knowledge base, runs fn and closes it again.
func withKB(open opener, fn func(knowledgeBase) error) error {
	r, err := open()
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}

func newBuildCmd(open opener) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index from the seed, or load the existing one",
		Long: `Without --force, loads the persisted index and documents, building
them from the seed only when neither exists. With --force, drops both and
re-embeds the seed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			return withKB(open, func(r knowledgeBase) error {
				var err error
				if force {
					err = r.Rebuild(ctx)
				} else {
					err = r.Initialize(ctx)
				}
				if err != nil {
					return fmt.Errorf("build failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d documents indexed (%s)\n", r.Count(), r.Backend())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Discard the persisted index and rebuild from the seed")
	return cmd
}

func newAskCmd(open opener) *cobra.Command {
	var threshold float32
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Query the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			return withKB(open, func(r knowledgeBase) error {
				if err := r.Initialize(ctx); err != nil {
					return err
				}
				ans := r.GetBestAnswer(ctx, strings.Join(args, " "), threshold)
				out := cmd.OutOrStdout()
				if !ans.Found {
					fmt.Fprintf(out, "✗ No answer above %.2f (best similarity %.3f)\n", threshold, ans.Confidence)
					return nil
				}
				fmt.Fprintf(out, "✓ [%s] similarity %.3f\n%s\n", ans.Source, ans.Confidence, ans.Answer)
				return nil
			})
		},
	}
	cmd.Flags().Float32Var(&threshold, "threshold", 0.65, "Minimum similarity for a match")
	return cmd
}

func newAddCmd(open opener) *cobra.Command {
	var doc kb.Document
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Embed and append one document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kb.ValidateDocument(doc); err != nil {
				return fmt.Errorf("invalid document: %w", err)
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			return withKB(open, func(r knowledgeBase) error {
				if err := r.Initialize(ctx); err != nil {
					return err
				}
				if err := r.AddDocument(ctx, doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%d documents)\n", doc.ID, r.Count())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&doc.ID, "id", "", "Document ID (required)")
	cmd.Flags().StringVar(&doc.Text, "text", "", "Text to embed, usually the question (required)")
	cmd.Flags().StringVar(&doc.Answer, "answer", "", "Answer returned on a match (required)")
	cmd.Flags().StringVar(&doc.Category, "category", "", "Category label")
	return cmd
}

func newStatsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			return withKB(open, func(r knowledgeBase) error {
				if err := r.Initialize(ctx); err != nil {
					return err
				}

				counts := map[string]int{}
				var order []string
				for _, d := range r.Documents() {
					cat := d.Category
					if cat == "" {
						cat = "(none)"
					}
					if counts[cat] == 0 {
						order = append(order, cat)
					}
					counts[cat]++
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:   %s\n", r.Backend())
				fmt.Fprintf(out, "Documents: %d\n", r.Count())
				for _, cat := range order {
					fmt.Fprintf(out, "  %-14s %d\n", cat, counts[cat])
				}
				return nil
			})
		},
	}
}
