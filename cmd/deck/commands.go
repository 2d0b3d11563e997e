package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"postdeck/internal/mdx"
	"postdeck/internal/post"
	"postdeck/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := post.Load(cfg.PostsDir)
	if err != nil {
		return err
	}
	for _, le := range cat.Errors {
		logger.Warn("post skipped", zap.String("path", le.Path), zap.Error(le.Err))
	}

	out := cmd.OutOrStdout()
	if cat.Len() == 0 {
		fmt.Fprintf(out, "No posts in %s.\n", cfg.PostsDir)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range cat.List() {
		kind := "prose"
		if p.HasSlides() {
			kind = fmt.Sprintf("%d slides", p.Deck.Len())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, post.FormatDate(p.Meta.Date), p.Meta.Title, kind, post.FormatTags(p.Meta.Tags))
	}
	return tw.Flush()
}

func newShowCmd() *cobra.Command {
	var (
		width int
		style string
	)
	cmd := &cobra.Command{
		Use:   "show <post-id>",
		Short: "Render a whole post to stdout, every segment revealed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := post.Load(cfg.PostsDir)
			if err != nil {
				return err
			}
			p, err := cat.Get(args[0])
			if err != nil {
				return err
			}
			return renderPost(cmd.OutOrStdout(), p, width, style)
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	cmd.Flags().StringVar(&style, "style", "auto", "Glamour style (auto, dark, light, notty or a JSON path)")
	return cmd
}

// postMarkdown flattens a post into one Markdown document.
func postMarkdown(p *mdx.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n*%s*", p.Meta.Title, p.Meta.Date.Display())
	if tags := post.FormatTags(p.Meta.Tags); tags != "" {
		fmt.Fprintf(&b, " · %s", tags)
	}
	b.WriteString("\n\n")
	if p.Meta.Desc != "" {
		fmt.Fprintf(&b, "> %s\n\n", p.Meta.Desc)
	}
	if p.Before != "" {
		b.WriteString(p.Before + "\n\n")
	}
	if p.HasSlides() {
		n := p.Deck.Len()
		for _, s := range p.Deck.Slides() {
			fmt.Fprintf(&b, "---\n\n**Slide %d/%d**\n\n", s.Index+1, n)
			for _, seg := range s.Segments {
				b.WriteString(seg.Body + "\n\n")
			}
			if s.Media != "" {
				fmt.Fprintf(&b, "*Graphics: %s*\n\n", s.Media)
			}
		}
	}
	if p.After != "" {
		b.WriteString(p.After + "\n")
	}
	return b.String()
}

func renderPost(w io.Writer, p *mdx.Post, width int, style string) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(postMarkdown(p))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", p.ID, err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse every post and report declaration errors",
		Long: `Parses every post in the posts directory. Structural errors (segments
outside slides, nested slides, unknown slide kinds, missing front matter)
are reported with their file and line; the command fails if any post is
invalid.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cat, err := post.Load(cfg.PostsDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range cat.List() {
		if p.HasSlides() {
			fmt.Fprintf(out, "ok    %s (%d slides, %d segments)\n", p.ID, p.Deck.Len(), p.Deck.Total())
		} else {
			fmt.Fprintf(out, "ok    %s (prose)\n", p.ID)
		}
	}
	for _, le := range cat.Errors {
		fmt.Fprintf(out, "FAIL  %v\n", le)
	}
	if n := len(cat.Errors); n > 0 {
		return fmt.Errorf("%d invalid post(s)", n)
	}
	return nil
}

func newSessionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions <post-id>",
		Short: "Show recent presentation runs of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.DatabasePath(configDir()))
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.RecentSessions(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintf(out, "No sessions for %s.\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, s := range sessions {
				ended, frag := "running", "-"
				if s.EndedAt != nil {
					ended = s.EndedAt.Format("2006-01-02 15:04")
				}
				if s.Fragment != "" {
					frag = "#" + s.Fragment
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(s.ID), s.StartedAt.Format("2006-01-02 15:04"), ended, frag)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to show")
	return cmd
}

// shortID abbreviates a session id for listings.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
