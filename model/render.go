package model

import (
	"fmt"

	"github.com/wnxd/xamldbg/debugger"
)

type Visibility uint8

const (
	Visible Visibility = iota
	Collapsed
)

type RenderData struct {
	OffsetX, OffsetY float32
	Width, Height    float32
	Opacity          float32
	Visibility       Visibility
	CompositionPeer  bool
}

func newRenderData(ui debugger.TypedAddress) (*RenderData, error) {
	var (
		rd  RenderData
		err error
	)
	for field, dst := range map[string]*float32{
		"OffsetX": &rd.OffsetX,
		"OffsetY": &rd.OffsetY,
		"Width":   &rd.Width,
		"Height":  &rd.Height,
		"Opacity": &rd.Opacity,
	} {
		if *dst, err = debugger.Field[float32](ui, field); err != nil {
			return nil, err
		}
	}
	v, err := debugger.Field[uint8](ui, "Visibility")
	if err != nil {
		return nil, err
	}
	rd.Visibility = Visibility(v)
	peer, err := ui.ReadPointer("CompositionPeer")
	if err != nil {
		return nil, err
	}
	rd.CompositionPeer = !peer.IsNil()
	return &rd, nil
}

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "Visible"
	case Collapsed:
		return "Collapsed"
	}
	return fmt.Sprintf("Visibility(%d)", uint8(v))
}

func (rd *RenderData) String() string {
	return fmt.Sprintf("offset=(%g,%g) size=(%gx%g) opacity=%g %s composition=%t",
		rd.OffsetX, rd.OffsetY, rd.Width, rd.Height, rd.Opacity, rd.Visibility, rd.CompositionPeer)
}
