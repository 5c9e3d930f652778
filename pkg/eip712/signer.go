package eip712

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ParsePrivateKey 从十六进制字符串解析 secp256k1 私钥（可带 0x 前缀）
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	b, err := hex.DecodeString(raw)
	defer zero(b)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidKey, Cause: errInvalidHex}
	}
	return PrivateKeyFromBytes(b)
}

// PrivateKeyFromBytes 要求 32 字节且标量在 [1, n-1]
func PrivateKeyFromBytes(b []byte) (*ecdsa.PrivateKey, error) {
	if len(b) != 32 {
		return nil, newError(ErrInvalidKey, "", "want 32-byte private key, got %d", len(b))
	}
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidKey, Cause: err}
	}
	return key, nil
}

// Address 私钥对应的地址
func Address(key *ecdsa.PrivateKey) (common.Address, error) {
	if err := checkKey(key); err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func checkKey(key *ecdsa.PrivateKey) error {
	if key == nil || key.D == nil {
		return newError(ErrInvalidKey, "", "private key is nil")
	}
	if key.D.Sign() <= 0 || key.D.Cmp(crypto.S256().Params().N) >= 0 {
		return newError(ErrInvalidKey, "", "private key out of range")
	}
	if key.X == nil || key.Y == nil {
		return newError(ErrInvalidKey, "", "public key is not populated")
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// build 校验输入并转换为 go-ethereum 的 TypedData
func (r *Request) build() (*apitypes.TypedData, error) {
	if r == nil {
		return nil, newError(ErrSchemaMismatch, "", "request is nil")
	}
	if err := r.Types.Validate(); err != nil {
		return nil, err
	}
	domainFields, err := r.Domain.resolveFields(r.Types[DomainType])
	if err != nil {
		return nil, err
	}

	primary := strings.TrimSpace(r.PrimaryType)
	if primary == "" {
		if primary, err = r.Types.InferPrimaryType(); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Types[primary]; !ok {
		return nil, newError(ErrSchemaMismatch, primary, "primary type is not declared")
	}
	if len(r.Message) == 0 && len(r.Types[primary]) > 0 {
		return nil, newError(ErrSchemaMismatch, primary, "message is empty")
	}

	message, err := normalizeStruct(r.Types, primary, r.Message, primary)
	if err != nil {
		return nil, err
	}

	types := make(apitypes.Types, len(r.Types)+1)
	for name, fields := range r.Types {
		types[name] = toAPIFields(fields)
	}
	types[DomainType] = toAPIFields(domainFields)

	return &apitypes.TypedData{
		Types:       types,
		PrimaryType: primary,
		Domain:      r.Domain.toAPI(),
		Message:     message,
	}, nil
}

func toAPIFields(fields []Field) []apitypes.Type {
	out := make([]apitypes.Type, len(fields))
	for i, f := range fields {
		out[i] = apitypes.Type{Name: f.Name, Type: f.Type}
	}
	return out
}

// Hash 计算域分隔符、结构体哈希以及最终待签名摘要
func Hash(req *Request) (*Digest, error) {
	typedData, err := req.build()
	if err != nil {
		return nil, err
	}

	encodedType, err := req.Types.EncodeType(typedData.PrimaryType)
	if err != nil {
		return nil, err
	}

	// 消息哈希。HashStruct 每次都会校验全部类型，先算消息，类型错误归到消息上
	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, wrapError(ErrEncodingFailure, typedData.PrimaryType, err, "hash message")
	}

	// 域分隔符
	domainSeparator, err := typedData.HashStruct(DomainType, typedData.Domain.Map())
	if err != nil {
		return nil, wrapError(ErrEncodingFailure, DomainType, err, "hash domain")
	}

	// 最终哈希：\x19\x01 + domainSeparator + structHash
	rawData := []byte("\x19\x01")
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, structHash...)

	return &Digest{
		PrimaryType:     typedData.PrimaryType,
		EncodedType:     encodedType,
		TypeHash:        crypto.Keccak256Hash([]byte(encodedType)),
		DomainSeparator: common.BytesToHash(domainSeparator),
		StructHash:      common.BytesToHash(structHash),
		Hash:            crypto.Keccak256Hash(rawData),
	}, nil
}

// Sign 对请求做 EIP-712 签名。crypto.Sign 使用 RFC 6979 确定性 nonce 并保证 low-s。
func Sign(req *Request, key *ecdsa.PrivateKey) (*Result, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	digest, err := Hash(req)
	if err != nil {
		return nil, err
	}

	// 返回 65 字节：r(32) + s(32) + recovery id(1)
	raw, err := crypto.Sign(digest.Hash.Bytes(), key)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidKey, Cause: err}
	}
	sig, err := SplitSignature(raw)
	if err != nil {
		return nil, err
	}

	signer := crypto.PubkeyToAddress(key.PublicKey)
	recovered, err := RecoverAddress(digest.Hash, sig)
	if err != nil {
		return nil, err
	}
	if recovered != signer {
		return nil, newError(ErrInvalidKey, "", "public key does not match private key")
	}

	return &Result{Digest: *digest, Signer: signer, Signature: sig}, nil
}

// SignHex 同 Sign，私钥为十六进制字符串
func SignHex(req *Request, hexKey string) (*Result, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return Sign(req, key)
}
