package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// clearEnv は環境変数の影響を取り除く
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "SCRIPTCORE_CONFIG"} {
		t.Setenv(k, "")
	}
}

func defaults() Config {
	return Config{Entry: -1, LogLevel: "info"}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		args   []string
		modify func(*Config)
	}{
		{"デフォルト設定", []string{}, func(c *Config) {}},
		{"スクリプト指定", []string{"scene.scb"}, func(c *Config) { c.ScriptPath = "scene.scb" }},
		{"タイムアウト指定", []string{"--timeout", "10"}, func(c *Config) { c.Timeout = 10 * time.Second }},
		{"タイムアウト指定（短縮形）", []string{"-t", "5"}, func(c *Config) { c.Timeout = 5 * time.Second }},
		{"フレーム数指定", []string{"-n", "600"}, func(c *Config) { c.Ticks = 600 }},
		{"ログレベル指定", []string{"--log-level", "debug"}, func(c *Config) { c.LogLevel = "debug" }},
		{"ログレベル指定（短縮形）", []string{"-l", "error"}, func(c *Config) { c.LogLevel = "error" }},
		{"設定ファイル", []string{"-c", "my.toml"}, func(c *Config) { c.ConfigPath = "my.toml" }},
		{"開始オフセット", []string{"--entry=16"}, func(c *Config) { c.Entry = 16 }},
		{
			"ブール型フラグの後の位置引数",
			[]string{"--headless", "scene.bin", "--legacy-pools", "--debug-flags"},
			func(c *Config) {
				c.Headless, c.LegacyPools, c.DebugFlags = true, true, true
				c.ScriptPath = "scene.bin"
			},
		},
		{
			"出力先",
			[]string{"scene.scb", "--trace", "out.cbor", "--snapshot", "last.bmp"},
			func(c *Config) {
				c.ScriptPath = "scene.scb"
				c.TracePath, c.Snapshot = "out.cbor", "last.bmp"
			},
		},
		{"ヘルプ", []string{"-h"}, func(c *Config) { c.ShowHelp = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error = %v", tt.args, err)
			}
			want := defaults()
			tt.modify(&want)
			if *got != want {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, *got, want)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"負のタイムアウト", []string{"--timeout", "-1"}},
		{"負のフレーム数", []string{"--ticks=-3"}},
		{"不正なオフセット", []string{"--entry=-2"}},
		{"不正なログレベル", []string{"--log-level", "verbose"}},
		{"未知のフラグ", []string{"--unknown"}},
		{"数値でないタイムアウト", []string{"-t", "abc"}},
		{"余分な位置引数", []string{"a.scb", "b.scb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args); err == nil {
				t.Errorf("ParseArgs(%v) should fail", tt.args)
			}
		})
	}
}

func TestParseArgs_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("SCRIPTCORE_CONFIG", "/etc/scriptcore.toml")

	got, err := ParseArgs([]string{"scene.scb"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Headless || got.Timeout != 7*time.Second || got.LogLevel != "warn" || got.ConfigPath != "/etc/scriptcore.toml" {
		t.Errorf("environment not applied: %+v", *got)
	}

	// コマンドラインフラグが優先
	got, err = ParseArgs([]string{"-t", "2", "-l", "debug", "-c", "local.toml"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Timeout != 2*time.Second || got.LogLevel != "debug" || got.ConfigPath != "local.toml" {
		t.Errorf("flags must win over the environment: %+v", *got)
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"scene.scb", "--headless", "-t", "5", "--entry=3"})
	want := []string{"--headless", "-t", "5", "--entry=3", "scene.scb"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("reorderArgs() = %v, want %v", got, want)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"--headless", "--ticks", "--trace", "--snapshot", "SCRIPTCORE_CONFIG"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help does not mention %s", want)
		}
	}
}
