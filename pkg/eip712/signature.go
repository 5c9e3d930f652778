package eip712

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// SignatureLength r(32) + s(32) + v(1)
	SignatureLength = 65
	// CompactSignatureLength EIP-2098: r(32) + yParityAndS(32)
	CompactSignatureLength = 64
)

// Signature 拆分后的签名，V 为 27 或 28
type Signature struct {
	R [32]byte
	S [32]byte
	V uint8
}

// SplitSignature 拆分 65 字节签名（v 可为 0/1/27/28）或 64 字节 EIP-2098 紧凑签名
func SplitSignature(sig []byte) (Signature, error) {
	var out Signature
	switch len(sig) {
	case SignatureLength:
		copy(out.R[:], sig[:32])
		copy(out.S[:], sig[32:64])
		v := sig[64]
		switch v {
		case 0, 1:
			v += 27
		case 27, 28:
		default:
			return Signature{}, newError(ErrEncodingFailure, "signature.v", "invalid v %d", v)
		}
		out.V = v
		if out.S[0]&0x80 != 0 {
			return Signature{}, newError(ErrEncodingFailure, "signature.s", "s out of range")
		}
	case CompactSignatureLength:
		copy(out.R[:], sig[:32])
		copy(out.S[:], sig[32:64])
		out.V = 27 + out.S[0]>>7
		out.S[0] &= 0x7f
	default:
		return Signature{}, newError(ErrEncodingFailure, "signature", "invalid length %d, want %d or %d", len(sig), SignatureLength, CompactSignatureLength)
	}
	return out, nil
}

// ParseSignature 解析 0x 前缀的十六进制签名
func ParseSignature(s string) (Signature, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Signature{}, wrapError(ErrEncodingFailure, "signature", err, "decode hex")
	}
	return SplitSignature(raw)
}

// JoinSignature 由 r, s, v 组装签名
func JoinSignature(r, s []byte, v uint8) (Signature, error) {
	if len(r) != 32 || len(s) != 32 {
		return Signature{}, newError(ErrEncodingFailure, "signature", "r and s must be 32 bytes, got %d and %d", len(r), len(s))
	}
	raw := make([]byte, 0, SignatureLength)
	raw = append(raw, r...)
	raw = append(raw, s...)
	raw = append(raw, v)
	return SplitSignature(raw)
}

// Bytes 返回 r || s || v
func (s Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out[:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

func (s Signature) Hex() string {
	return hexutil.Encode(s.Bytes())
}

// RecoveryParam 0 或 1
func (s Signature) RecoveryParam() uint8 {
	if s.V >= 27 {
		return s.V - 27
	}
	return s.V
}

// YParityAndS EIP-2098 的 _vs：s 的最高位放 recovery param
func (s Signature) YParityAndS() common.Hash {
	vs := common.Hash(s.S)
	if s.RecoveryParam() == 1 {
		vs[0] |= 0x80
	}
	return vs
}

// Compact EIP-2098 64 字节签名
func (s Signature) Compact() []byte {
	vs := s.YParityAndS()
	out := make([]byte, 0, CompactSignatureLength)
	out = append(out, s.R[:]...)
	return append(out, vs[:]...)
}

type signatureJSON struct {
	R             common.Hash   `json:"r"`
	S             common.Hash   `json:"s"`
	V             uint8         `json:"v"`
	RecoveryParam uint8         `json:"recoveryParam"`
	YParityAndS   common.Hash   `json:"yParityAndS"`
	Compact       hexutil.Bytes `json:"compact"`
	Signature     hexutil.Bytes `json:"signature"`
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{
		R:             common.Hash(s.R),
		S:             common.Hash(s.S),
		V:             s.V,
		RecoveryParam: s.RecoveryParam(),
		YParityAndS:   s.YParityAndS(),
		Compact:       s.Compact(),
		Signature:     s.Bytes(),
	})
}
