// Package window はエンジンを Ebitengine のウィンドウで駆動する
package window

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/scriptcore/pkg/engine"
	"github.com/zurustar/scriptcore/pkg/logger"
)

// 既定の論理画面サイズ
const (
	DefaultWidth  = 640
	DefaultHeight = 448
)

var (
	// 背景色（フレームが無いとき）
	backgroundColor = color.Black
	// オーバーレイの文字色
	overlayColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// オーバーレイの下地（半透明の黒）
	overlayBackColor = color.RGBA{0x00, 0x00, 0x00, 0xA0}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// Frame は描画済みの画面を提供する（headless.Framebuffer が実装する）
type Frame interface {
	Image() *image.RGBA
}

// Muter はミュート切り替えを受け付ける（audio.Mixer が実装する）
type Muter interface {
	SetMuted(muted bool)
	IsMuted() bool
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	engine  *engine.Engine
	frame   Frame
	muter   Muter
	width   int
	height  int
	timeout time.Duration
	log     *slog.Logger

	startTime time.Time
	overlay   bool
	stopped   bool
	screen    *ebiten.Image
	mu        sync.RWMutex
}

// Option は Game の設定を行う
type Option func(*Game)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(g *Game) { g.log = log }
}

// WithFrame は表示するフレームを設定する
func WithFrame(f Frame) Option {
	return func(g *Game) { g.frame = f }
}

// WithMuter は M キーで切り替えるミュート対象を設定する
func WithMuter(m Muter) Option {
	return func(g *Game) { g.muter = m }
}

// WithTimeout は指定時間後にウィンドウを閉じる（0は無制限）
func WithTimeout(d time.Duration) Option {
	return func(g *Game) { g.timeout = d }
}

// WithSize は論理画面サイズを設定する
func WithSize(width, height int) Option {
	return func(g *Game) {
		if width > 0 && height > 0 {
			g.width, g.height = width, height
		}
	}
}

// WithOverlay はデバッグ表示の初期状態を設定する
func WithOverlay(enabled bool) Option {
	return func(g *Game) { g.overlay = enabled }
}

// NewGame Gameを作成
func NewGame(e *engine.Engine, opts ...Option) *Game {
	g := &Game{
		engine:    e,
		width:     DefaultWidth,
		height:    DefaultHeight,
		log:       logger.GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stopped はエンジンが停止したかどうかを返す
func (g *Game) Stopped() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stopped
}

// Overlay はデバッグ表示が有効かどうかを返す
func (g *Game) Overlay() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.overlay
}

// Update 1フレーム分エンジンを進める（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.timeout > 0 && time.Since(g.startTime) >= g.timeout {
		g.log.Info("Window timeout reached", "timeout", g.timeout)
		g.engine.Terminate()
		return ebiten.Termination
	}

	// Escキーで終了
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.engine.Terminate()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.mu.Lock()
		g.overlay = !g.overlay
		g.mu.Unlock()
	}
	if g.muter != nil && inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.muter.SetMuted(!g.muter.IsMuted())
	}

	g.mu.RLock()
	stopped := g.stopped
	g.mu.RUnlock()
	if stopped {
		// スクリプト終了後もユーザーが閉じるまでウィンドウは開いたまま
		return nil
	}

	if err := g.engine.Update(); err != nil {
		if !errors.Is(err, engine.ErrTerminated) {
			return err
		}
		g.mu.Lock()
		g.stopped = true
		g.mu.Unlock()
		g.log.Info("Engine stopped, window stays open", "reason", g.engine.Reason(), "ticks", g.engine.Ticks())
	}
	return nil
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	g.drawFrame(screen)
	if g.Overlay() {
		msg := g.overlayText()
		lines := strings.Count(msg, "\n") + 1
		vector.DrawFilledRect(screen, 4, 4, 232, float32(lines*16+8), overlayBackColor, false)
		op := &text.DrawOptions{}
		op.GeoM.Translate(8, 8)
		op.LineSpacing = 16
		op.ColorScale.ScaleWithColor(overlayColor)
		text.Draw(screen, msg, defaultFace, op)
	}
}

// drawFrame フレームバッファを画面に転送する
func (g *Game) drawFrame(screen *ebiten.Image) {
	if g.frame == nil {
		return
	}
	img := g.frame.Image()
	b := img.Bounds()
	if g.screen == nil || g.screen.Bounds().Dx() != b.Dx() || g.screen.Bounds().Dy() != b.Dy() {
		g.screen = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.screen.WritePixels(img.Pix)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.width)/float64(b.Dx()), float64(g.height)/float64(b.Dy()))
	screen.DrawImage(g.screen, op)
}

// overlayText デバッグ表示の内容
func (g *Game) overlayText() string {
	live := 0
	for _, m := range g.engine.Contexts() {
		if !m.Halted() {
			live++
		}
	}
	lines := []string{
		fmt.Sprintf("frame %d  tick %d", g.engine.World().Frame, g.engine.Ticks()),
		fmt.Sprintf("contexts %d/%d", live, len(g.engine.Contexts())),
	}
	if g.muter != nil && g.muter.IsMuted() {
		lines = append(lines, "muted")
	}
	if g.Stopped() {
		lines = append(lines, "stopped: "+g.engine.Reason().String())
	}
	return strings.Join(lines, "\n")
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// Run GUIモードでウィンドウを実行
func Run(g *Game, title string, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	ebiten.SetWindowSize(int(float64(g.width)*scale), int(float64(g.height)*scale))
	ebiten.SetWindowTitle(title)
	// アスペクト比を維持してスケーリングする
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
