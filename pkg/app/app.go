// Package app wires the command line, configuration, bundle, host
// collaborators and engine into one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/zurustar/scriptcore/pkg/audio"
	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/cli"
	"github.com/zurustar/scriptcore/pkg/config"
	"github.com/zurustar/scriptcore/pkg/dialogue"
	"github.com/zurustar/scriptcore/pkg/engine"
	"github.com/zurustar/scriptcore/pkg/fileutil"
	"github.com/zurustar/scriptcore/pkg/headless"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/vm"
	"github.com/zurustar/scriptcore/pkg/window"
)

// ErrNoScript はスクリプトが指定されていないときに返される
var ErrNoScript = errors.New("no script bundle given")

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config   *cli.Config
	settings *config.Config
	log      *slog.Logger
	stdout   io.Writer

	bundle *bundle.Bundle
	host   *headless.Host
	fb     *headless.Framebuffer
	mixer  *audio.Mixer
	world  *vm.World
	engine *engine.Engine
}

// Option は Application の設定を行う
type Option func(*Application)

// WithStdout はヘルプなどの出力先を設定する
func WithStdout(w io.Writer) Option {
	return func(app *Application) { app.stdout = w }
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Host はヘッドレス協調オブジェクトを返す（Run の後で有効）
func (app *Application) Host() *headless.Host { return app.host }

// World は共有状態を返す（Run の後で有効）
func (app *Application) World() *vm.World { return app.world }

// Engine はエンジンを返す（Run の後で有効）
func (app *Application) Engine() *engine.Engine { return app.engine }

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = cfg

	if cfg.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()

	if cfg.ScriptPath == "" {
		return ErrNoScript
	}
	app.log.Info("Application started", "script", cfg.ScriptPath, "headless", cfg.Headless)

	// 3. 設定ファイルとバンドルの読み込み
	if err := app.loadSettings(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	b, err := bundle.Load(cfg.ScriptPath)
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	app.bundle = b
	app.log.Info("Bundle loaded",
		"main", len(b.Main()), "structural", len(b.Structural()), "dialogue", len(b.Dialogue()),
		"resources", len(b.Resources), "placements", len(b.Placements))

	// 4. 協調オブジェクトと World の構築
	app.buildWorld()

	// 5. スクリプトコンテキストとエンジンの構築
	if err := app.buildEngine(); err != nil {
		return err
	}

	// 6. 実行
	var result engine.Result
	if cfg.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		result = app.engine.Run(ctx)
		stop()
	} else {
		if err := app.runWindow(); err != nil {
			return err
		}
		result = app.engine.Result()
	}
	app.log.Info("Run finished", "reason", result.Reason, "ticks", result.Ticks)

	// 7. 後処理
	app.engine.LogUndefined()
	if app.mixer != nil {
		app.mixer.Close()
	}
	if err := app.writeOutputs(); err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	app.log.Info("Application terminated normally")
	return nil
}

// loadSettings 設定ファイルを読み込み、コマンドラインの指定を重ねる
func (app *Application) loadSettings() error {
	path := app.config.ConfigPath
	if path == "" {
		// スクリプトと同じ場所の設定ファイルを探す
		if found, err := fileutil.FindFileCaseInsensitive(filepath.Dir(app.config.ScriptPath), config.FileName); err == nil {
			path = found
		}
	}
	settings := config.Default()
	if path != "" {
		s, err := config.Load(path)
		if err != nil {
			return err
		}
		settings = s
		app.log.Info("Config loaded", "path", path)
	}
	if app.config.LegacyPools {
		settings.Interpreter.LegacyUncheckedPools = true
	}
	if app.config.DebugFlags {
		settings.Interpreter.DebugFlags = true
	}
	app.settings = settings
	return nil
}

// buildWorld 協調オブジェクトを用意し World を作成する
// ヘッドレスモードでは音声の代わりに記録用の実装を使う
func (app *Application) buildWorld() {
	s := app.settings
	app.fb = headless.NewFramebuffer()
	app.host = headless.New(
		headless.WithLogger(app.log),
		headless.WithBundle(app.bundle),
		headless.WithFramebuffer(app.fb),
		headless.WithRecordHistory(app.config.TracePath != ""),
	)
	host := app.host.VM()

	if !app.config.Headless {
		app.mixer = app.newMixer()
		host.Params = app.mixer
		host.Readiness = app.mixer
		host.Voices = app.mixer
	}

	app.world = vm.NewWorld(
		vm.WithWorldLogger(app.log),
		vm.WithHost(host),
		vm.WithLayout(s.Layout()),
		vm.WithLegacyPools(s.Interpreter.LegacyUncheckedPools),
		vm.WithDebugFlags(s.Interpreter.DebugFlags),
		vm.WithBundle(app.bundle),
	)
	app.host.Attach(app.world)
}

// newMixer 音声ミキサーを作成する。SoundFont が無い場合は MIDI を無効にして続行する
func (app *Application) newMixer() *audio.Mixer {
	s := app.settings.Audio
	dir := filepath.Dir(app.config.ScriptPath)
	opts := []audio.Option{
		audio.WithLogger(app.log),
		audio.WithFileSystem(fileutil.Dir(dir)),
		audio.WithVoiceDir(s.VoiceDir),
		audio.WithParamScale(s.ParamScale),
		audio.WithMuted(s.Muted),
	}
	if loc := findSoundFont(dir, s.SoundFont); loc != nil {
		sf, err := audio.LoadSoundFont(loc.FileSystem, loc.Path)
		if err != nil {
			app.log.Warn("SoundFont not loaded, MIDI voices disabled", "path", loc.Path, "error", err)
		} else {
			app.log.Info("SoundFont loaded", "path", loc.Path)
			opts = append(opts, audio.WithSoundFont(sf))
		}
	} else {
		app.log.Warn("SoundFont not found, MIDI voices disabled")
	}
	return audio.New(opts...)
}

// buildEngine メインコンテキストとダイアログストリームからエンジンを作成する
func (app *Application) buildEngine() error {
	s := app.settings.Interpreter
	main := vm.New(app.world, app.bundle.Main(),
		vm.WithLogger(app.log),
		vm.WithName("main"),
		vm.WithTickDelta(s.TickDelta),
		vm.WithBudget(s.TickBudget),
		vm.WithStructure(app.bundle.Structural()),
	)
	entry := int(app.bundle.Entry)
	if app.config.Entry >= 0 {
		entry = app.config.Entry
	}
	if err := main.Main().Seek(entry); err != nil {
		return fmt.Errorf("invalid entry offset %#x: %w", entry, err)
	}

	opts := []engine.Option{
		engine.WithLogger(app.log),
		engine.WithMaxTicks(app.config.Ticks),
		engine.WithTimeout(app.config.Timeout),
	}
	if d := app.bundle.Dialogue(); len(d) > 0 {
		opts = append(opts, engine.WithDialogue(dialogue.New(app.world, d, dialogue.WithLogger(app.log))))
	}
	if app.mixer != nil {
		opts = append(opts, engine.WithUpdater(app.mixer))
	}
	app.engine = engine.New(app.world, []*vm.Machine{main}, opts...)
	return nil
}

// runWindow GUIモードでウィンドウを実行
func (app *Application) runWindow() error {
	w := app.settings.Window
	game := window.NewGame(app.engine,
		window.WithLogger(app.log),
		window.WithFrame(app.fb),
		window.WithMuter(app.mixer),
		window.WithSize(w.Width, w.Height),
		window.WithTimeout(app.config.Timeout),
		window.WithOverlay(app.settings.Interpreter.DebugFlags),
	)
	return window.Run(game, w.Title, w.Scale)
}

// writeOutputs 操作履歴とスナップショットを保存する
func (app *Application) writeOutputs() error {
	if p := app.config.TracePath; p != "" {
		if err := app.host.SaveTrace(p); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
		app.log.Info("Trace written", "path", p, "records", len(app.host.History()))
	}
	if p := app.config.Snapshot; p != "" {
		if err := app.fb.SaveBMP(p, app.settings.Window.Scale); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		app.log.Info("Snapshot written", "path", p)
	}
	return nil
}
