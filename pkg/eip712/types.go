// Package eip712 实现 EIP-712 结构化数据的哈希与签名。
//
// 哈希规则由 go-ethereum 的 apitypes 完成，本包负责在哈希之前校验类型定义、
// 规整消息字段值，并把签名拆分为 (r, s, v)。
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DomainType EIP-712 域类型名称
const DomainType = "EIP712Domain"

// Field 结构体字段描述
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Schema 结构体类型名 -> 有序字段列表
type Schema map[string][]Field

// Message 字段名 -> 字段值
type Message map[string]interface{}

// Domain EIP-712 域。未设置的字段不参与域类型与域分隔符。
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract *common.Address
	Salt              *common.Hash
}

// Request 一次签名请求的全部输入（私钥除外）
type Request struct {
	Domain      Domain
	Types       Schema
	PrimaryType string // 为空时按 InferPrimaryType 推断
	Message     Message
}

// Digest 哈希过程中的各个中间值
type Digest struct {
	PrimaryType     string      `json:"primaryType"`
	EncodedType     string      `json:"encodedType"`
	TypeHash        common.Hash `json:"typeHash"`
	DomainSeparator common.Hash `json:"domainSeparator"`
	StructHash      common.Hash `json:"structHash"`
	Hash            common.Hash `json:"digest"`
}

// Result 签名结果
type Result struct {
	Digest
	Signer    common.Address `json:"signer"`
	Signature Signature      `json:"signature"`
}
