package vfx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/vfx/graph"
)

// encodePNG returns a solid-color PNG of the given size.
func encodePNG(t *testing.T, c color.NRGBA, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() = %v", err)
	}
	return buf.Bytes()
}

// imageSnapshot builds a single-node document around one image.
func imageSnapshot(name string) (*Snapshot, graph.NodeID) {
	id := graph.NewNodeID()
	var g graph.Graph
	g.AddNode(id)
	return &Snapshot{
		Graph:     g,
		NodeProps: map[graph.NodeID]NodeProps{id: &ImageProps{Name: name}},
		Dt:        0.016,
	}, id
}

func TestImageNodeDecodesAndUploads(t *testing.T) {
	rig := newTestRig(t)
	rig.lib.setImage("tex.png", encodePNG(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, 4, 4))
	chain, _ := rig.ctx.AddChain(8, 8)

	snap, id := imageSnapshot("tex.png")
	waitState(t, rig.ctx, snap, id, StateReady)

	results := paintFrame(t, rig, chain)
	tex := results[id]
	if tex == nil {
		t.Fatal("no result for the image node")
	}
	if tex.Width() != 8 || tex.Height() != 8 {
		t.Errorf("image output is %dx%d, want the 8x8 chain size", tex.Width(), tex.Height())
	}

	// A solid source stays solid through scaling.
	data, err := rig.dev.ReadTexture(tex.Texture())
	if err != nil {
		t.Fatalf("ReadTexture() = %v", err)
	}
	want := [4]byte{10, 20, 30, 255}
	if got := [4]byte(data[:4]); got != want {
		t.Errorf("texel = %v, want %v", got, want)
	}

	// Image nodes record no render passes; their texture is uploaded.
	if passes := rig.dev.SubmittedPasses(); len(passes) != 0 {
		t.Errorf("image node recorded %d passes, want 0", len(passes))
	}
}

func TestImageNodeMissingFile(t *testing.T) {
	rig := newTestRig(t)
	snap, id := imageSnapshot("nope.png")
	waitState(t, rig.ctx, snap, id, StateError)
	st, _ := rig.ctx.NodeStatus(id)
	if !errors.Is(st.Err, ErrNotFound) {
		t.Errorf("Err = %v, want ErrNotFound", st.Err)
	}
}

func TestImageNodeDecodeFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.lib.setImage("bad.png", []byte("not an image"))
	snap, id := imageSnapshot("bad.png")
	waitState(t, rig.ctx, snap, id, StateError)
	st, _ := rig.ctx.NodeStatus(id)
	if st.Err == nil {
		t.Error("decode failure carries no error")
	}
}

func TestImageNodeRenameReloads(t *testing.T) {
	rig := newTestRig(t)
	rig.lib.setImage("red.png", encodePNG(t, color.NRGBA{R: 200, A: 255}, 2, 2))
	rig.lib.setImage("blue.png", encodePNG(t, color.NRGBA{B: 200, A: 255}, 2, 2))
	chain, _ := rig.ctx.AddChain(4, 4)

	snap, id := imageSnapshot("red.png")
	waitState(t, rig.ctx, snap, id, StateReady)
	data, err := rig.dev.ReadTexture(paintFrame(t, rig, chain)[id].Texture())
	if err != nil {
		t.Fatalf("ReadTexture() = %v", err)
	}
	if data[0] != 200 {
		t.Fatalf("texel = %v, want red", data[:4])
	}

	snap.NodeProps[id] = &ImageProps{Name: "blue.png"}
	waitState(t, rig.ctx, snap, id, StateReady)
	data, err = rig.dev.ReadTexture(paintFrame(t, rig, chain)[id].Texture())
	if err != nil {
		t.Fatalf("ReadTexture() = %v", err)
	}
	if data[2] != 200 || data[0] != 0 {
		t.Errorf("texel = %v, want blue after the rename", data[:4])
	}
}

func TestImageNodeFeedsEffect(t *testing.T) {
	rig := newTestRig(t)
	rig.lib.setImage("src.png", encodePNG(t, color.NRGBA{G: 128, A: 255}, 2, 2))
	chain, _ := rig.ctx.AddChain(8, 8)

	img := graph.NewNodeID()
	fx := graph.NewNodeID()
	var g graph.Graph
	g.AddNode(img)
	g.AddNode(fx)
	g.AddEdge(graph.Edge{From: img, To: fx, Input: 0})
	snap := &Snapshot{
		Graph: g,
		NodeProps: map[graph.NodeID]NodeProps{
			img: &ImageProps{Name: "src.png"},
			fx:  &EffectProps{Name: "test", Intensity: 1},
		},
		Dt: 0.016,
	}
	waitState(t, rig.ctx, snap, img, StateReady)
	waitState(t, rig.ctx, snap, fx, StateReady)

	results := paintFrame(t, rig, chain)
	passes := rig.dev.SubmittedPasses()
	if len(passes) != 1 {
		t.Fatalf("submitted %d passes, want 1", len(passes))
	}
	e := findBinding(t, rig, passes[0].Draws[0].BindGroups[1], paintInputBinding)
	if e.TextureView != results[img].View() {
		t.Errorf("effect input view = %d, want the image upload %d", e.TextureView, results[img].View())
	}
}
