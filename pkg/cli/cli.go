package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ScriptPath  string        // スクリプトバンドルのパス（.scb または .bin）
	ConfigPath  string        // 設定ファイルのパス（空ならスクリプトの隣を探す）
	Entry       int           // 開始オフセット（-1 はバンドルの entry）
	Ticks       int           // 実行する最大フレーム数（0は無制限）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード
	LegacyPools bool          // オブジェクトプールの範囲検査を無効化
	DebugFlags  bool          // フラグ操作をログ出力
	TracePath   string        // ヘッドレス操作履歴の出力先（CBOR）
	Snapshot    string        // 終了時のフレームバッファの出力先（BMP）
	ShowHelp    bool          // ヘルプ表示フラグ
}

// ブール型フラグ（値を取らない）
var boolFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"--headless": true, "-headless": true,
	"--legacy-pools": true, "-legacy-pools": true,
	"--debug-flags": true, "-debug-flags": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("scriptcore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.IntVar(&config.Ticks, "ticks", 0, "最大フレーム数")
	fs.IntVar(&config.Ticks, "n", 0, "最大フレーム数（短縮形）")
	fs.IntVar(&config.Entry, "entry", -1, "開始オフセット")
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイル")
	fs.StringVar(&config.ConfigPath, "c", "", "設定ファイル（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.LegacyPools, "legacy-pools", false, "プール範囲検査を無効化")
	fs.BoolVar(&config.DebugFlags, "debug-flags", false, "フラグ操作をログ出力")
	fs.StringVar(&config.TracePath, "trace", "", "操作履歴の出力先")
	fs.StringVar(&config.Snapshot, "snapshot", "", "フレームバッファの出力先")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.ConfigPath == "" {
		config.ConfigPath = os.Getenv("SCRIPTCORE_CONFIG")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.Ticks < 0 {
		return nil, fmt.Errorf("ticks must be non-negative, got %d", config.Ticks)
	}
	if config.Entry < -1 {
		return nil, fmt.Errorf("entry must be a stream offset, got %d", config.Entry)
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 位置引数（スクリプトバンドルのパス）
	if fs.NArg() > 0 {
		config.ScriptPath = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合）
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `scriptcore - bytecode script interpreter

Usage:
  scriptcore [options] <script>

Arguments:
  script        スクリプトバンドル（.scb）またはロー イメージ（.bin）のパス

Options:
  -c, --config <file>         設定ファイル（デフォルト: スクリプトと同じ場所の scriptcore.toml）
  --entry <offset>            メインストリームの開始オフセット（デフォルト: バンドルの entry）
  -n, --ticks <count>         指定フレーム数で終了（デフォルト: 無制限）
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし・音声なし）
  --legacy-pools              オブジェクトプールの範囲検査を無効化
  --debug-flags               フラグ操作をログ出力
  --trace <file>              ヘッドレス操作履歴を CBOR で保存
  --snapshot <file>           終了時の画面を BMP で保存
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SCRIPTCORE_CONFIG=<file>    設定ファイル

Examples:
  scriptcore scene.scb                    ウィンドウで実行
  scriptcore --headless -n 600 scene.bin  600フレームだけヘッドレスで実行
  scriptcore --headless --trace out.cbor scene.scb
`)
}
