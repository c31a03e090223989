package apk

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxEntrySize 单个条目解压上限（10 MB，十进制），防解压炸弹。
	// 严格小于：达到该值的条目同样跳过。
	MaxEntrySize = 10_000_000

	// DefaultMaxFileSize APK 文件大小上限（50 MiB）
	DefaultMaxFileSize = 50 * 1024 * 1024
)

// ErrInvalidArchive ZIP 容器结构无法解析（坏魔数、截断的 central directory 等）。
// 终态错误：调用方应整体拒绝该文件，不可重试。
var ErrInvalidArchive = errors.New("invalid APK file (not a valid ZIP archive)")

// Archive 内存缓冲区上的只读 ZIP 视图。
// 条目枚举可重复进行；条目不得在 Archive 之外继续使用。
type Archive struct {
	reader *zip.Reader
}

// OpenArchive 将字节缓冲区作为 ZIP 容器打开。
// 结构性错误统一折叠为 ErrInvalidArchive。
func OpenArchive(buf []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return &Archive{reader: r}, nil
}

// Entries 枚举全部条目（含目录项）
func (a *Archive) Entries() []*zip.File {
	return a.reader.File
}

// ReadEntry 解压读取单个条目，受 MaxEntrySize 上限保护。
// 上限检查在解压之前进行（以条目声明的解压后大小为准）；
// 单条目的损坏/不支持的压缩方法由调用方跳过，不影响整体分析。
func (a *Archive) ReadEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 >= MaxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds size limit (%d bytes)", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// 声明大小不可信，读取时再次限界
	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", f.Name, err)
	}
	if len(data) >= MaxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds size limit while reading", f.Name)
	}

	return data, nil
}
