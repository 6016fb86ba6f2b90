package headless

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/zurustar/scriptcore/pkg/tween"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// 仮想画面のサイズ（全画面エフェクトの座標系は中心原点）
const (
	Width  = tween.ScreenHalfWidth * 2
	Height = tween.ScreenHalfHeight * 2
)

// Framebuffer は全画面エフェクトを合成するソフトウェア描画先
type Framebuffer struct {
	img *image.RGBA
	bg  color.RGBA
}

// NewFramebuffer は黒で塗りつぶしたフレームバッファを作成する
func NewFramebuffer() *Framebuffer {
	f := &Framebuffer{
		img: image.NewRGBA(image.Rect(0, 0, Width, Height)),
		bg:  color.RGBA{0, 0, 0, 255},
	}
	f.Clear()
	return f
}

// Clear は背景色で塗りつぶす
func (f *Framebuffer) Clear() {
	draw.Draw(f.img, f.img.Bounds(), &image.Uniform{f.bg}, image.Point{}, draw.Src)
}

// SetBackground は背景色を設定する（0xRRGGBB）
func (f *Framebuffer) SetBackground(rgb uint32) {
	f.bg = color.RGBA{uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb), 255}
}

// EffectColor は ARGB 値を非乗算アルファの色に変換する
func EffectColor(argb uint32) color.NRGBA {
	return color.NRGBA{R: uint8(argb >> 16), G: uint8(argb >> 8), B: uint8(argb), A: uint8(argb >> 24)}
}

// Apply はエフェクトの矩形を現在の内容の上に合成する
func (f *Framebuffer) Apply(fx vm.FullscreenEffect) {
	r := image.Rect(
		int(fx.X0)+tween.ScreenHalfWidth, int(fx.Y0)+tween.ScreenHalfHeight,
		int(fx.X1)+tween.ScreenHalfWidth, int(fx.Y1)+tween.ScreenHalfHeight,
	).Intersect(f.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(f.img, r, &image.Uniform{EffectColor(fx.ARGB)}, image.Point{}, draw.Over)
}

// Image は描画結果を返す
func (f *Framebuffer) Image() *image.RGBA { return f.img }

// Scaled は描画結果を拡大縮小したコピーを返す
func (f *Framebuffer) Scaled(scale float64) *image.RGBA {
	if scale <= 0 || scale == 1 {
		out := image.NewRGBA(f.img.Bounds())
		copy(out.Pix, f.img.Pix)
		return out
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(Width*scale), int(Height*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), f.img, f.img.Bounds(), draw.Src, nil)
	return dst
}

// WriteBMP は描画結果を BMP として書き出す
func (f *Framebuffer) WriteBMP(w io.Writer, scale float64) error {
	if err := bmp.Encode(w, f.Scaled(scale)); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// SaveBMP は描画結果を BMP ファイルに保存する
func (f *Framebuffer) SaveBMP(path string, scale float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := f.WriteBMP(file, scale); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
