// Package headless はウィンドウや音声デバイスを持たない実行のための協調オブジェクトを提供する。
// すべての呼び出しをログと操作履歴に記録し、待機系の問い合わせには
// あらかじめ与えたシーケンスで応答する。
package headless

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/pool"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// OperationRecord は協調オブジェクトへの呼び出しの記録を表す
type OperationRecord struct {
	Operation string         `cbor:"op"`
	Args      map[string]any `cbor:"args,omitempty"`
}

// Sequence は問い合わせごとに1つずつ消費される応答列。
// 使い切った後は最後の値を返し続け、空なら既定値を返す。
type Sequence struct {
	values []bool
	next   int
}

// NewSequence は応答列を作成する
func NewSequence(values ...bool) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) poll(def bool) bool {
	if s == nil || len(s.values) == 0 {
		return def
	}
	v := s.values[s.next]
	if s.next < len(s.values)-1 {
		s.next++
	}
	return v
}

// Host はヘッドレスモード用の協調オブジェクト
type Host struct {
	log           *slog.Logger
	logOperations bool
	recordHistory bool
	history       []OperationRecord
	historyMu     sync.RWMutex

	// 待機系の応答
	loaderBusy *Sequence
	audioBusy  *Sequence
	systemBusy *Sequence

	bundle    *bundle.Bundle
	spawn     *pool.Pool
	pending   []pool.SlotID
	functions []vm.HostFunc
	fb        *Framebuffer

	params []float32
	text   []string
}

// Option は Host のオプションを設定する関数型
type Option func(*Host)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// WithLogOperations は操作のログ記録を有効/無効にする
func WithLogOperations(enabled bool) Option {
	return func(h *Host) {
		h.logOperations = enabled
	}
}

// WithRecordHistory は操作履歴の記録を有効/無効にする
func WithRecordHistory(enabled bool) Option {
	return func(h *Host) {
		h.recordHistory = enabled
	}
}

// WithLoaderBusy はローダーの応答列を設定する（true はビジー）
func WithLoaderBusy(values ...bool) Option {
	return func(h *Host) {
		h.loaderBusy = NewSequence(values...)
	}
}

// WithAudioBusy は音声チャンネルの応答列を設定する
func WithAudioBusy(values ...bool) Option {
	return func(h *Host) {
		h.audioBusy = NewSequence(values...)
	}
}

// WithSystemBusy はシステムビジーの応答列を設定する
func WithSystemBusy(values ...bool) Option {
	return func(h *Host) {
		h.systemBusy = NewSequence(values...)
	}
}

// WithBundle はリソース解決に使うバンドルを設定する
func WithBundle(b *bundle.Bundle) Option {
	return func(h *Host) {
		h.bundle = b
	}
}

// WithFramebuffer は全画面エフェクトを描き込むフレームバッファを設定する
func WithFramebuffer(fb *Framebuffer) Option {
	return func(h *Host) {
		h.fb = fb
	}
}

// WithFunctions はホスト関数テーブルを設定する
func WithFunctions(fns ...vm.HostFunc) Option {
	return func(h *Host) {
		h.functions = fns
	}
}

// New は新しいヘッドレス Host を作成する
func New(opts ...Option) *Host {
	h := &Host{
		log:           logger.GetLogger(),
		logOperations: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach は World のスポーンプールを割り当て先として使う
func (h *Host) Attach(w *vm.World) {
	h.spawn = w.Pools.Spawn
}

// VM は vm.World に渡す協調オブジェクトの束を返す
func (h *Host) VM() vm.Host {
	return vm.Host{
		Params:       h,
		Resources:    h,
		Renderer:     h,
		Readiness:    h,
		Entities:     h,
		Interpolator: h,
		Voices:       h,
		Text:         h,
		Functions:    h.functions,
	}
}

// record は操作をログと履歴に記録する
func (h *Host) record(operation string, args ...any) {
	if h.logOperations {
		h.log.Debug(fmt.Sprintf("[Headless] %s", operation), args...)
	}
	if !h.recordHistory {
		return
	}
	rec := OperationRecord{Operation: operation}
	if len(args) > 1 {
		rec.Args = make(map[string]any, len(args)/2)
	}
	// args を key-value ペアとして解析
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			rec.Args[key] = args[i+1]
		}
	}
	h.historyMu.Lock()
	h.history = append(h.history, rec)
	h.historyMu.Unlock()
}

// History は操作履歴のコピーを返す
func (h *Host) History() []OperationRecord {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()
	out := make([]OperationRecord, len(h.history))
	copy(out, h.history)
	return out
}

// ClearHistory は操作履歴をクリアする
func (h *Host) ClearHistory() {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	h.history = nil
}

// Count は指定した操作の記録件数を返す
func (h *Host) Count(operation string) int {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()
	n := 0
	for _, r := range h.history {
		if r.Operation == operation {
			n++
		}
	}
	return n
}

// Params は受け取ったパラメータを返す
func (h *Host) Params() []float32 { return append([]float32(nil), h.params...) }

// Text は受け取った台詞テキストを返す
func (h *Host) Text() []string { return append([]string(nil), h.text...) }

// ===== vm.ParamSink =====

// SubmitParameter はパラメータを記録する
func (h *Host) SubmitParameter(v float32) {
	h.params = append(h.params, v)
	h.record("SubmitParameter", "value", v)
}

// ===== vm.Resources =====

// ResolveEntity はバンドルのリソースチェーンから ID を解決する。
// バンドルがない場合は 0 以外の ID をすべて解決済みとみなす。
func (h *Host) ResolveEntity(id uint16) (vm.EntityHandle, bool) {
	ok := id != 0
	if h.bundle != nil {
		_, ok = h.bundle.FindResource(uint32(id))
	}
	h.record("ResolveEntity", "id", id, "ok", ok)
	if !ok {
		return 0, false
	}
	return vm.EntityHandle(id), true
}

// ===== vm.Renderer =====

// RenderFullscreenEffect は全画面エフェクトを記録し、フレームバッファに描き込む
func (h *Host) RenderFullscreenEffect(fx vm.FullscreenEffect) {
	if h.fb != nil {
		h.fb.Apply(fx)
	}
	h.record("RenderFullscreenEffect", "argb", fx.ARGB, "packet", fx.Packet)
}

// WriteBankStream はバンク転送を記録する
func (h *Host) WriteBankStream(bank, start uint32, words []uint32) {
	h.record("WriteBankStream", "bank", bank, "start", start, "words", len(words))
}

// SubmitParamBlock はパラメータブロックを記録する
func (h *Host) SubmitParamBlock(pb vm.ParamBlock) {
	h.record("SubmitParamBlock", "x", pb.X, "y", pb.Y, "z", pb.Z, "w", pb.W)
}

// ===== vm.Readiness =====

// IsLoaderIdle はローダーの応答列を1つ消費する
func (h *Host) IsLoaderIdle() bool {
	return !h.loaderBusy.poll(false)
}

// IsAudioChannelBusy は音声チャンネルの応答列を1つ消費する
func (h *Host) IsAudioChannelBusy() bool {
	return h.audioBusy.poll(false)
}

// IsSystemBusy はシステムビジーの応答列を1つ消費する
func (h *Host) IsSystemBusy() bool {
	return h.systemBusy.poll(false)
}

// ===== vm.Entities =====

// Spawn はスポーンプールからレコードを割り当て、次の ProcessPendingSpawns まで保留する
func (h *Host) Spawn(req vm.SpawnRequest) (pool.SlotID, bool) {
	if h.spawn == nil {
		h.log.Warn("spawn without an attached world", "index", req.Index)
		return 0, false
	}
	id, ok := h.spawn.Allocate()
	if !ok {
		h.log.Warn("spawn pool exhausted", "index", req.Index, "capacity", h.spawn.Capacity())
		return 0, false
	}
	h.pending = append(h.pending, id)
	h.record("Spawn", "index", req.Index, "slot", int(id), "kind", req.Kind, "id", req.Placement.ID)
	return id, true
}

// ProcessPendingSpawns は保留中のスポーンを確定する
func (h *Host) ProcessPendingSpawns() {
	h.record("ProcessPendingSpawns", "count", len(h.pending))
	h.pending = h.pending[:0]
}

// Pending は保留中のスポーン数を返す
func (h *Host) Pending() int { return len(h.pending) }

// ===== vm.Interpolator =====

// Interpolate は補間ステップを記録する
func (h *Host) Interpolate(kind vm.Opcode, step int32) {
	h.record("Interpolate", "kind", kind.String(), "step", step)
}

// ===== vm.Voices / vm.TextSink =====

// LoadVoice はボイスの読み込みを記録する
func (h *Host) LoadVoice(channel, wait int8, id uint32) {
	h.record("LoadVoice", "channel", channel, "wait", wait, "id", id)
}

// Emit は台詞テキストを記録する
func (h *Host) Emit(text string) {
	h.text = append(h.text, text)
	h.record("Emit", "text", text)
}
