package apk

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip 构造内存 ZIP，entries 按插入顺序写入
func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// TestOpenArchive_Valid 测试打开合法 ZIP
func TestOpenArchive_Valid(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"classes.dex": []byte("dex content"),
	})

	archive, err := OpenArchive(buf)
	require.NoError(t, err)
	assert.Len(t, archive.Entries(), 1)
}

// TestOpenArchive_InvalidBytes 随机非 ZIP 字节必须以 ErrInvalidArchive 拒绝
func TestOpenArchive_InvalidBytes(t *testing.T) {
	archive, err := OpenArchive([]byte("this is definitely not a zip archive"))

	assert.Nil(t, archive)
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

// TestOpenArchive_Empty 空缓冲区同样是非法容器
func TestOpenArchive_Empty(t *testing.T) {
	_, err := OpenArchive(nil)
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

// TestReadEntry 测试条目读取
func TestReadEntry(t *testing.T) {
	content := []byte("hello from inside the apk")
	buf := buildZip(t, map[string][]byte{"assets/data.txt": content})

	archive, err := OpenArchive(buf)
	require.NoError(t, err)

	data, err := archive.ReadEntry(archive.Entries()[0])
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

// TestReadEntry_ExceedsSizeLimit 达到单条目上限的条目在解压前被拒绝。
// 上限是严格小于：恰好 MaxEntrySize 字节已超限，少 1 字节可读。
func TestReadEntry_ExceedsSizeLimit(t *testing.T) {
	atLimit := bytes.Repeat([]byte("A"), MaxEntrySize)
	buf := buildZip(t, map[string][]byte{"classes.dex": atLimit})

	archive, err := OpenArchive(buf)
	require.NoError(t, err)

	_, err = archive.ReadEntry(archive.Entries()[0])
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")

	underLimit := bytes.Repeat([]byte("A"), MaxEntrySize-1)
	buf = buildZip(t, map[string][]byte{"classes.dex": underLimit})

	archive, err = OpenArchive(buf)
	require.NoError(t, err)

	data, err := archive.ReadEntry(archive.Entries()[0])
	require.NoError(t, err)
	assert.Len(t, data, MaxEntrySize-1)
}

// TestDigest 测试摘要与大小计算
func TestDigest(t *testing.T) {
	hash, sizeKb := Digest([]byte("hello"))

	assert.Len(t, hash, 64)
	assert.Equal(t, strings.ToLower(hash), hash, "hash must be lowercase hex")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
	assert.Equal(t, 0, sizeKb, "5 bytes rounds to 0 KB")

	_, sizeKb = Digest(bytes.Repeat([]byte("x"), 1536))
	assert.Equal(t, 2, sizeKb, "1536 bytes rounds to 2 KB")
}

// TestDigest_Deterministic 相同缓冲区哈希一致，单比特翻转哈希不同
func TestDigest_Deterministic(t *testing.T) {
	a := []byte("the quick brown fox")
	b := append([]byte(nil), a...)

	hashA, _ := Digest(a)
	hashB, _ := Digest(b)
	assert.Equal(t, hashA, hashB)

	b[0] ^= 0x01
	hashC, _ := Digest(b)
	assert.NotEqual(t, hashA, hashC)
}
