package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/v0xg/webmacro/internal/api"
	"github.com/v0xg/webmacro/internal/gifgen"
	"github.com/v0xg/webmacro/internal/macro"
	"github.com/v0xg/webmacro/internal/overlay"
	"github.com/v0xg/webmacro/internal/player"
	"go.uber.org/zap"
)

func newRecordCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "record <url>",
		Short: "Open a browser at url and record until Enter or Ctrl-C",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			// The browser must survive the interrupt that ends the recording
			ctx := context.WithoutCancel(cmd.Context())

			fmt.Printf("→ Opening %s... ", args[0])
			if err := a.service.StartRecording(ctx, args[0]); err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			fmt.Println("→ Recording, press Enter to stop")

			waitForStop()

			fmt.Printf("→ Saving %s... ", name)
			m, err := a.service.StopRecording(ctx, name)
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Printf("done (%d steps)\n", len(m.Steps))
			logSteps(m.Steps)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Macro name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// waitForStop blocks until Enter, EOF or an interrupt
func waitForStop() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	line := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(line)
	}()

	select {
	case <-sig:
		fmt.Println()
	case <-line:
	}
}

func newPlayCmd() *cobra.Command {
	var (
		gifPath    string
		holdFrames int
		noCursor   bool
	)

	cmd := &cobra.Command{
		Use:   "play <name>",
		Short: "Replay a saved macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var frames *player.FrameRecorder
			opts := appOptions{}
			if gifPath != "" {
				frames = player.NewFrameRecorder(holdFrames, logger)
				opts.playerOpts = append(opts.playerOpts, player.WithObserver(frames))
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("→ Playing %s... ", args[0])
			playErr := a.service.PlayMacro(ctx, args[0])
			if playErr != nil {
				fmt.Println("failed")
			} else {
				fmt.Println("done")
			}

			// A failed replay still gets its GIF, it shows where things went wrong
			if frames != nil && !errors.Is(playErr, macro.ErrNotFound) {
				if err := writeGIF(frames.Frames(), gifPath, !noCursor); err != nil {
					return errors.Join(playErr, err)
				}
			}
			return playErr
		},
	}

	cmd.Flags().StringVar(&gifPath, "gif", "", "Also export the replay as a GIF")
	cmd.Flags().IntVar(&holdFrames, "hold", 3, "Frames to hold at the start and end of the GIF")
	cmd.Flags().BoolVar(&noCursor, "no-cursor", false, "Disable click overlay")
	return cmd
}

func writeGIF(frames []player.Frame, path string, cursor bool) error {
	if len(frames) == 0 {
		fmt.Println("⚠ No frames captured, skipping GIF")
		return nil
	}

	var images []image.Image
	if cursor {
		images = overlay.Apply(frames)
	} else {
		for _, f := range frames {
			images = append(images, f.Image)
		}
	}

	fmt.Printf("→ Generating GIF (%d frames)... ", len(images))
	size, err := gifgen.Generate(images, path, gifgen.Options{MaxWidth: 800})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("GIF generation failed: %w", err)
	}
	fmt.Println("done")
	fmt.Printf("✓ Saved to %s (%.1f MB)\n", path, float64(size)/(1024*1024))
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved macros, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			macros, err := a.service.ListMacros(cmd.Context())
			if err != nil {
				return err
			}
			if len(macros) == 0 {
				fmt.Println("No macros saved yet")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tURL\tRECORDED\tSTEPS")
			for _, m := range macros {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.Name, m.StartURL, m.RecordedAt.Local().Format("2006-01-02 15:04:05"), len(m.Steps))
			}
			return w.Flush()
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.DeleteMacro(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted %s\n", args[0])
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Summarize a macro in plain language using AI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProvider()
			if err != nil {
				return fmt.Errorf("AI provider init failed: %w", err)
			}

			a, err := newApp(appOptions{describer: p})
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Printf("→ Describing %s via %s... ", args[0], cfg.Provider)
			desc, err := a.service.DescribeMacro(cmd.Context(), args[0])
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			fmt.Println(desc)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the macro operations over local HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := appOptions{}
			if p, err := newProvider(); err != nil {
				logger.Warn("describe disabled", zap.Error(err))
			} else {
				opts.describer = p
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(a.service, a.recorder, api.WithLogger(logger))
			fmt.Printf("→ Serving on http://%s\n", cfg.Addr)
			err = srv.ListenAndServe(ctx, cfg.Addr)

			// Don't leave a browser behind
			if a.recorder.IsRecording() {
				if _, stopErr := a.recorder.Stop(context.Background()); stopErr != nil {
					logger.Warn("failed to stop recording on shutdown", zap.Error(stopErr))
				}
			}
			return err
		},
	}
}

// logSteps prints the captured steps
func logSteps(steps []macro.Step) {
	for i, step := range steps {
		switch {
		case step.Selector == "":
			fmt.Printf("  [%d] %s\n", i+1, step.Action)
		case step.Target().InputType == "password":
			fmt.Printf("  [%d] %s → %s (value hidden)\n", i+1, step.Action, step.Selector)
		case step.Value != "" && step.Action != macro.ActionClick:
			fmt.Printf("  [%d] %s → %s (value: %q)\n", i+1, step.Action, step.Selector, step.Value)
		default:
			fmt.Printf("  [%d] %s → %s\n", i+1, step.Action, step.Selector)
		}
	}
}
