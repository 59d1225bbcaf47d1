package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrInvalidTicket 表示对决票据缺失、被篡改或与投票的角色不匹配
var ErrInvalidTicket = errors.New("invalid matchup ticket")

// keySize 是HMAC密钥的字节数
const keySize = 32

// Payload 定义了需要被签名的数据结构。
// 角色ID按从小到大排列，因此签名只与无序的一对角色有关，与出场顺序无关。
type Payload struct {
	PairID string `json:"p"`
	LowID  int    `json:"l"`
	HighID int    `json:"h"`
}

// NewPayload 根据 pairID 和两个角色ID构造规范化的 Payload
func NewPayload(pairID string, a, b int) Payload {
	if a > b {
		a, b = b, a
	}
	return Payload{PairID: pairID, LowID: a, HighID: b}
}

// Ticket 是随对决下发给客户端、并在投票时回传的票据
type Ticket struct {
	PairID    string `json:"pairId"`
	Signature string `json:"signature"`
}

// Signer 使用HMAC-SHA256为对决签发和校验票据
type Signer struct {
	key []byte
}

// NewSigner 使用给定的密钥创建签名器
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("empty signing key")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// NewRandomSigner 生成一个密码学安全的32字节随机密钥并创建签名器。
// 密钥只保存在内存中，重启后旧票据全部失效。
func NewRandomSigner() (*Signer, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Issue 为角色 a 与 b 的一次对决签发票据，PairID 为 UUIDv7
func (s *Signer) Issue(a, b int) (Ticket, error) {
	pairID, err := uuid.NewV7()
	if err != nil {
		return Ticket{}, fmt.Errorf("generate pair id: %w", err)
	}

	payload := NewPayload(pairID.String(), a, b)
	signature, err := s.sign(payload)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{PairID: payload.PairID, Signature: signature}, nil
}

// Verify 校验票据是否由本签名器为 {a, b} 这一对角色签发
func (s *Signer) Verify(ticket Ticket, a, b int) error {
	if ticket.PairID == "" || ticket.Signature == "" {
		return fmt.Errorf("%w: missing pair id or signature", ErrInvalidTicket)
	}
	if _, err := uuid.Parse(ticket.PairID); err != nil {
		return fmt.Errorf("%w: malformed pair id", ErrInvalidTicket)
	}

	// 1. 重新计算预期的签名
	payloadBytes, err := json.Marshal(NewPayload(ticket.PairID, a, b))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payloadBytes)
	expected := mac.Sum(nil)

	// 2. 解码客户端传来的签名
	actual, err := base64.RawURLEncoding.DecodeString(ticket.Signature)
	if err != nil {
		return fmt.Errorf("%w: undecodable signature", ErrInvalidTicket)
	}

	// 3. 时间恒定的比较
	if !hmac.Equal(expected, actual) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidTicket)
	}
	return nil
}

func (s *Signer) sign(payload Payload) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ticket payload: %w", err)
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payloadBytes)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
