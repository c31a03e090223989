package apk

import (
	"crypto/sha256"
	"fmt"
	"math"
)

// Digest 对原始 APK 字节计算 SHA-256（64 位小写十六进制）与 KB 大小。
// 始终针对原始文件计算，与任何解压内容无关。
func Digest(buf []byte) (hashHex string, sizeKb int) {
	sum := sha256.Sum256(buf)
	hashHex = fmt.Sprintf("%x", sum)
	sizeKb = int(math.Round(float64(len(buf)) / 1024))
	return hashHex, sizeKb
}
