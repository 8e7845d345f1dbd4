// pkg/render/engo/assets.go
package engo

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-drivesim/pkg/track"
)

// FontURL is the virtual file the HUD font is registered under.
const FontURL = "drivesim/goregular.ttf"

// Palette.
var (
	BackgroundColor = color.RGBA{34, 85, 34, 255}
	SurfaceColor    = color.RGBA{51, 51, 51, 255}
	CenterLineColor = color.RGBA{255, 255, 255, 255}
	StartLineColor  = color.RGBA{255, 255, 255, 255}
	BarrierColor    = color.RGBA{255, 0, 0, 255}
	VehicleColor    = color.RGBA{0, 102, 204, 255}
	CameraColor     = color.RGBA{255, 255, 0, 255}
	HUDColor        = color.RGBA{255, 255, 255, 255}
)

// vehiclePattern is a top-down car, nose up. 1 is body, 2 is windscreen.
var vehiclePattern = [][]int{
	{0, 0, 1, 1, 1, 1, 0, 0},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{0, 1, 2, 2, 2, 2, 1, 0},
	{0, 1, 2, 2, 2, 2, 1, 0},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 1, 1, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{0, 1, 2, 2, 2, 2, 1, 0},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 1, 1, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{0, 1, 1, 1, 1, 1, 1, 0},
	{0, 0, 1, 1, 1, 1, 0, 0},
}

// AssetManager builds the drawables used by the renderer. Images are
// generated in memory; LoadAssets uploads them and needs a GL context.
type AssetManager struct {
	vehicle   common.Drawable
	startLine common.Drawable
	font      *common.Font
	loaded    bool
}

// NewAssetManager creates an empty asset manager.
func NewAssetManager() *AssetManager {
	return &AssetManager{}
}

// LoadAssets uploads textures and registers the HUD font.
func (am *AssetManager) LoadAssets() error {
	am.vehicle = toTexture(VehicleImage())
	am.startLine = toTexture(CheckerImage(int(track.DefaultWidth)*2, int(track.StartLineDepth)*2))

	if err := engo.Files.LoadReaderData(FontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	font := &common.Font{
		URL:  FontURL,
		FG:   HUDColor,
		Size: 16,
	}
	if err := font.CreatePreloaded(); err != nil {
		return fmt.Errorf("failed to create HUD font: %w", err)
	}
	am.font = font
	am.loaded = true
	return nil
}

// Loaded reports whether LoadAssets succeeded.
func (am *AssetManager) Loaded() bool {
	return am.loaded
}

// Vehicle returns the car sprite, or a plain rectangle before loading.
func (am *AssetManager) Vehicle() common.Drawable {
	if am.vehicle == nil {
		return common.Rectangle{}
	}
	return am.vehicle
}

// StartLine returns the chequered start line, or a plain rectangle before
// loading.
func (am *AssetManager) StartLine() common.Drawable {
	if am.startLine == nil {
		return common.Rectangle{}
	}
	return am.startLine
}

// Font returns the HUD font, nil before loading.
func (am *AssetManager) Font() *common.Font {
	return am.font
}

// VehicleImage renders vehiclePattern.
func VehicleImage() *image.NRGBA {
	h := len(vehiclePattern)
	w := len(vehiclePattern[0])
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	windscreen := color.RGBA{170, 221, 255, 255}
	for y, row := range vehiclePattern {
		for x, pixel := range row {
			switch pixel {
			case 1:
				img.Set(x, y, VehicleColor)
			case 2:
				img.Set(x, y, windscreen)
			}
		}
	}
	return img
}

// CheckerImage renders a black and white chequer of w by h cells.
func CheckerImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, StartLineColor)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func toTexture(img *image.NRGBA) common.Drawable {
	return common.NewTextureSingle(common.NewImageObject(img))
}
