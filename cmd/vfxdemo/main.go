// Command vfxdemo renders an effect chain headlessly and saves the
// final frame as a PNG. With no GPU provider attached the software
// reference backend is selected; the wiring is identical either way.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/vfx"
	"github.com/gogpu/vfx/graph"
	"github.com/gogpu/vfx/render"
)

func main() {
	var (
		width   = flag.Uint("width", 800, "chain width in pixels")
		height  = flag.Uint("height", 600, "chain height in pixels")
		output  = flag.String("output", "frame.png", "output file")
		effects = flag.String("effects", "purple:1,zoomin:0.6", "comma-separated name:intensity pairs")
		frames  = flag.Int("frames", 60, "frames to run once the chain is ready")
		library = flag.String("library", "", "directory of extra .wgsl effects and images")
	)
	flag.Parse()

	var opts []vfx.ContextOption
	if *library != "" {
		opts = append(opts, vfx.WithLibrary(vfx.NewLibrary(*library)))
	}
	ctx, err := vfx.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer ctx.Close()

	chain, err := ctx.AddChain(uint32(*width), uint32(*height))
	if err != nil {
		log.Fatalf("Failed to add chain: %v", err)
	}

	snap, err := buildSnapshot(*effects)
	if err != nil {
		log.Fatalf("Bad -effects value: %v", err)
	}

	grab := &captureSink{dev: ctx.Device()}
	d := vfx.NewDriver(ctx)
	d.SetSnapshot(snap)
	d.AddSink(chain, grab)

	if err := waitReady(d, ctx); err != nil {
		log.Fatalf("Chain failed to come up: %v", err)
	}
	for i := 0; i < *frames; i++ {
		if err := d.Frame(); err != nil {
			log.Fatalf("Frame %d failed: %v", i, err)
		}
		time.Sleep(16 * time.Millisecond) // roughly 60 Hz
	}

	if grab.img == nil {
		log.Fatal("No frame was presented")
	}
	if err := savePNG(*output, grab.img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Saved %s (%dx%d, backend %s)\n", *output, *width, *height, ctx.Device().Name())
}

// buildSnapshot turns "name:intensity,..." into a linear chain feeding
// a visible screen output.
func buildSnapshot(spec string) (*vfx.Snapshot, error) {
	snap := &vfx.Snapshot{NodeProps: map[graph.NodeID]vfx.NodeProps{}}
	var prev graph.NodeID
	for _, part := range strings.Split(spec, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(part), ":")
		if name == "" {
			return nil, fmt.Errorf("empty effect name in %q", spec)
		}
		intensity := 1.0
		if found {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("intensity %q: %w", val, err)
			}
			intensity = f
		}
		id := graph.NewNodeID()
		snap.Graph.AddNode(id)
		snap.NodeProps[id] = &vfx.EffectProps{Name: name, Intensity: intensity, Frequency: 1}
		if !prev.IsZero() {
			snap.Graph.AddEdge(graph.Edge{From: prev, To: id, Input: 0})
		}
		prev = id
	}
	out := graph.NewNodeID()
	snap.Graph.AddNode(out)
	snap.NodeProps[out] = &vfx.OutputProps{Visible: true}
	snap.Graph.AddEdge(graph.Edge{From: prev, To: out, Input: 0})
	return snap, nil
}

// waitReady drives frames until every node has finished compiling.
func waitReady(d *vfx.Driver, ctx *vfx.Context) error {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if err := d.Frame(); err != nil {
			return err
		}
		ready := true
		for id, st := range ctx.NodeStatuses() {
			switch st.State {
			case vfx.StateError:
				return fmt.Errorf("node %v: %w", id, st.Err)
			case vfx.StateReady:
			default:
				ready = false
			}
		}
		if ready {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("nodes still compiling after 10s")
}

// captureSink keeps the pixels of the most recently presented frame.
type captureSink struct {
	dev render.Device
	img *image.RGBA
}

func (s *captureSink) Present(_ vfx.ChainID, _ graph.NodeID, tex *render.TextureRef) error {
	data, err := s.dev.ReadTexture(tex.Texture())
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(tex.Width()), int(tex.Height())))
	copy(img.Pix, data)
	s.img = img
	return nil
}

func savePNG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
