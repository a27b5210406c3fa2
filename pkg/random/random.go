// Package random 提供洗牌与会话标识所需的随机源。
//
// 优先使用 crypto/rand；读取失败时退化为 math/rand/v2 伪随机源，
// 调用方无需关心具体来源。
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Source 均匀整数随机源
type Source interface {
	// IntN 返回 [0, n) 内均匀分布的整数，n 必须大于 0
	IntN(n int) int
}

// ── 密码学随机源 ──

type cryptoSource struct {
	reader   io.Reader
	fallback *mrand.Rand
}

// Crypto 返回基于 crypto/rand 的随机源
func Crypto() Source {
	return NewCrypto(crand.Reader)
}

// NewCrypto 以指定 reader 构造密码学随机源；reader 出错时使用伪随机兜底
func NewCrypto(r io.Reader) Source {
	return &cryptoSource{reader: r, fallback: newPseudo()}
}

func (s *cryptoSource) IntN(n int) int {
	if n <= 0 {
		panic("random: IntN 参数必须大于 0")
	}
	v, err := crand.Int(s.reader, big.NewInt(int64(n)))
	if err != nil {
		return s.fallback.IntN(n)
	}
	return int(v.Int64())
}

// ── 伪随机源 ──

// Pseudo 返回以固定种子初始化的伪随机源（测试可复现）
func Pseudo(seed uint64) Source {
	return mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newPseudo() *mrand.Rand {
	seed, err := NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return mrand.New(mrand.NewPCG(uint64(seed), uint64(time.Now().UnixNano())))
}

// NewSeed 使用 crypto/rand 生成随机种子
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// ── 会话标识 ──

// SessionID 生成每个签到流程唯一的会话标识
func SessionID() string {
	return SessionIDFrom(crand.Reader, time.Now())
}

// SessionIDFrom 优先生成 UUIDv4；随机源不可用时退化为 "<毫秒时间戳>-<base36 随机串>"，
// 此时唯一性仅为尽力而为
func SessionIDFrom(r io.Reader, now time.Time) string {
	id, err := uuid.NewRandomFromReader(r)
	if err == nil {
		return id.String()
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.FormatUint(mrand.Uint64(), 36)
}
