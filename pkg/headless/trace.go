package headless

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

var traceEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// WriteTrace は操作履歴を正準 CBOR の配列として書き出す
func (h *Host) WriteTrace(w io.Writer) error {
	if err := traceEncMode.NewEncoder(w).Encode(h.History()); err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	return nil
}

// SaveTrace は操作履歴をファイルに書き出す
func (h *Host) SaveTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := h.WriteTrace(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTrace は WriteTrace が書き出した操作履歴を読み込む
func ReadTrace(r io.Reader) ([]OperationRecord, error) {
	var recs []OperationRecord
	if err := cbor.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}
	return recs, nil
}
