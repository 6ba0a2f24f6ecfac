package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/JD-Gaming/jd-gaming/internal/config"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
)

func (c command) render(ctx context.Context, args []string) error {
	fs := c.flagSet("render")
	outDir := fs.String("out", "frames", "directory the PNG frames are written to")
	every := fs.Int("every", 1, "write every n-th frame")
	maxFrames := fs.Int("max-frames", 2000, "stop the game after this many frames")
	gridW := fs.Int("grid-width", 0, "arkanoid sensor width the network was trained with")
	gridH := fs.Int("grid-height", 0, "arkanoid sensor height the network was trained with")
	seedText := fs.String("seed", "1", "hexadecimal game seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := requireArgs(fs, "network file")
	if err != nil {
		return err
	}
	if *every < 1 {
		return fmt.Errorf("render: -every must be positive, got %d", *every)
	}
	seed, err := config.ParseSeed(*seedText)
	if err != nil {
		return err
	}

	net, err := nn.LoadFile(paths[0])
	if err != nil {
		return err
	}
	task, err := scape.NewArkanoid(*gridW, *gridH, *maxFrames)
	if err != nil {
		return err
	}
	if err := scape.CheckNetwork(task, net); err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	ep := task.Reset(seed)
	game, _ := scape.ArkanoidEpisode(ep)
	written := 0
	for !ep.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if game.Frame()%*every == 0 {
			if err := writeFrame(*outDir, game); err != nil {
				return err
			}
			written++
		}
		if err := net.Run(ep.Observe()); err != nil {
			return err
		}
		ep.Step(net.Outputs())
	}
	if err := writeFrame(*outDir, game); err != nil {
		return err
	}
	written++

	fmt.Fprintf(c.stdout, "wrote %d frames to %s, score %d after %d frames\n", written, *outDir, game.Score(), game.Frame())
	return nil
}

func writeFrame(dir string, game *scape.Game) error {
	path := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", game.Frame()))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	img := scape.FrameImage(game.Pixels(), scape.ScreenWidth, scape.ScreenHeight)
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
