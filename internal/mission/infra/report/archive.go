package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"Vikings/internal/mission/entity/domain"
)

// Archive 按天滚动的 zstd 压缩 JSONL 战报归档，文件名 reports-YYYY-MM-DD.jsonl.zst。
type Archive struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewArchive(dir string) *Archive {
	return &Archive{dir: dir, now: time.Now}
}

func (a *Archive) SaveReport(ctx context.Context, r domain.BattleReport) error {
	_ = ctx
	a.mu.Lock()
	defer a.mu.Unlock()

	day := a.now().UTC().Format("2006-01-02")
	if day != a.curDay {
		if err := a.rotateLocked(day); err != nil {
			return err
		}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	if err := a.w.WriteByte('\n'); err != nil {
		return err
	}
	return a.w.Flush()
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Archive) PathFor(day string) string {
	return filepath.Join(a.dir, fmt.Sprintf("reports-%s.jsonl.zst", day))
}

func (a *Archive) rotateLocked(day string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(a.PathFor(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriterSize(enc, 64*1024)
	a.curDay = day
	return nil
}

func (a *Archive) closeLocked() error {
	var err error
	if a.w != nil {
		_ = a.w.Flush()
	}
	if a.enc != nil {
		err = a.enc.Close()
		a.enc = nil
	}
	if a.f != nil {
		_ = a.f.Close()
		a.f = nil
	}
	a.w = nil
	a.curDay = ""
	return err
}

// ReadArchive 读取一个归档文件；同一文件多次追加产生的多个 zstd 帧会依次解出。
func ReadArchive(path string) ([]domain.BattleReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []domain.BattleReport
	jd := json.NewDecoder(dec)
	for {
		var r domain.BattleReport
		if err := jd.Decode(&r); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}
