package api

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const stampPadding = 4

// stampWorkspace draws the workspace id into the top-left corner of the
// canvas image so a static PNG consumer can tell which workspace it shows.
func stampWorkspace(img *image.RGBA, workspaceID int) {
	text := fmt.Sprintf("ws %d", workspaceID)

	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	textWidth := int(d.MeasureString(text) >> 6)

	boxWidth := textWidth + 2*stampPadding
	boxHeight := face.Height + 2*stampPadding
	if boxWidth > img.Bounds().Dx() || boxHeight > img.Bounds().Dy() {
		return
	}

	box := image.Rect(0, 0, boxWidth, boxHeight)
	draw.Draw(img, box, &image.Uniform{color.RGBA{0, 0, 0, 200}}, image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{230, 230, 230, 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(stampPadding), Y: fixed.I(stampPadding + face.Ascent)},
	}
	drawer.DrawString(text)
}
