// Package cli provides the ask command, which sends one message through the
// assistant without starting the HTTP server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"chatroom-backend/internal/config"
	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/models"
	"chatroom-backend/internal/services"
)

const renderWidth = 100

type askOptions struct {
	backend string
	images  []string
	output  string
	raw     bool
	verbose bool
}

// NewAskCommand builds the root command.
func NewAskCommand() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message to the chat assistant",
		Long: `ask sends a single message through the same decision and dispatch
steps the chat backend uses, then prints the reply.

Examples:
  ask "Write a short essay about tides"
  ask "Draw a lighthouse at dusk" -o lighthouse.png
  ask "What is in this photo?" -i photo.jpg
  ask --backend keyword "Draw a cat"       Run without an API key`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) > 0 {
				text = args[0]
			} else if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" && len(opts.images) == 0 {
				return cmd.Help()
			}
			return runAsk(cmd.Context(), cmd.OutOrStdout(), text, opts)
		},
	}

	cmd.Flags().StringVar(&opts.backend, "backend", "", "assistant backend (gemini or keyword), overrides ASSISTANT_BACKEND")
	cmd.Flags().StringArrayVarP(&opts.images, "image", "i", nil, "image file to attach (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file to write a generated image to")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the reply without markdown rendering")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log backend calls to stderr")

	return cmd
}

// Execute runs the ask command against os.Args.
func Execute() {
	if err := NewAskCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runAsk(ctx context.Context, out io.Writer, text string, opts *askOptions) error {
	if opts.backend != "" {
		os.Setenv("ASSISTANT_BACKEND", opts.backend)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	images, err := loadImages(opts.images)
	if err != nil {
		return err
	}
	req, err := services.NewChatRequest(text, images)
	if err != nil {
		return err
	}

	assistant, closeBackend, err := services.NewAssistantFromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	resp := assistant.Respond(ctx, req)
	return printResponse(out, resp, opts)
}

// loadImages reads image files into data URIs, sniffing the MIME type from
// the file contents.
func loadImages(paths []string) ([]string, error) {
	images := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%s is not an image (detected %s)", path, mime)
		}
		images = append(images, datauri.Encode(mime, data))
	}
	return images, nil
}

func printResponse(out io.Writer, resp models.ChatResponse, opts *askOptions) error {
	reply := resp.ReplyText
	if !opts.raw {
		rendered, err := renderMarkdown(reply)
		if err == nil {
			reply = rendered
		}
	}
	fmt.Fprintln(out, strings.TrimRight(reply, "\n"))

	if !resp.IsImageResult || resp.ImageDataURI == "" {
		return nil
	}

	img, err := datauri.ParseImage(resp.ImageDataURI)
	if err != nil {
		return fmt.Errorf("assistant returned an unreadable image: %w", err)
	}
	if opts.output == "" {
		fmt.Fprintf(out, "(%s image, %d bytes; pass -o to save it)\n", img.MIMEType, len(img.Data))
		return nil
	}
	if err := os.WriteFile(opts.output, img.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	fmt.Fprintf(out, "Image saved to %s\n", opts.output)
	return nil
}

func renderMarkdown(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}
