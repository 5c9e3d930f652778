// Package render 把签名/哈希/校验结果写成 json、text 或 pretty（lipgloss 面板）。
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/betbot/typedsig/pkg/eip712"
)

// Format 输出格式
type Format string

const (
	JSON   Format = "json"
	Text   Format = "text"
	Pretty Format = "pretty"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, Text, Pretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (json, text, pretty)", s)
	}
}

// Field 一行输出
type Field struct {
	Key   string
	Value string
}

// Document 一份待输出的结果：JSON 直接编码 Value，text/pretty 按 Fields 顺序输出
type Document struct {
	Title  string
	Fields []Field
	Value  interface{}
}

// Write 按格式写出
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case Text:
		for _, f := range doc.Fields {
			if _, err := fmt.Fprintf(w, "%s: %s\n", f.Key, f.Value); err != nil {
				return err
			}
		}
		return nil
	case Pretty:
		_, err := fmt.Fprintln(w, panel(doc))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc.Value)
	}
}

// SignOutput sign 命令的 JSON 结构，字段名与 ethers splitSignature 一致
type SignOutput struct {
	Signer          common.Address `json:"signer"`
	PrimaryType     string         `json:"primaryType"`
	TypeHash        common.Hash    `json:"typeHash"`
	DomainSeparator common.Hash    `json:"domainSeparator"`
	StructHash      common.Hash    `json:"structHash"`
	Digest          common.Hash    `json:"digest"`
	R               common.Hash    `json:"r"`
	S               common.Hash    `json:"s"`
	V               uint8          `json:"v"`
	RecoveryParam   uint8          `json:"recoveryParam"`
	YParityAndS     common.Hash    `json:"yParityAndS"`
	Compact         hexutil.Bytes  `json:"compact"`
	Signature       hexutil.Bytes  `json:"signature"`
}

func NewSignOutput(res *eip712.Result) SignOutput {
	sig := res.Signature
	return SignOutput{
		Signer:          res.Signer,
		PrimaryType:     res.PrimaryType,
		TypeHash:        res.TypeHash,
		DomainSeparator: res.DomainSeparator,
		StructHash:      res.StructHash,
		Digest:          res.Hash,
		R:               common.Hash(sig.R),
		S:               common.Hash(sig.S),
		V:               sig.V,
		RecoveryParam:   sig.RecoveryParam(),
		YParityAndS:     sig.YParityAndS(),
		Compact:         sig.Compact(),
		Signature:       sig.Bytes(),
	}
}

// SignResult 签名结果
func SignResult(res *eip712.Result) Document {
	out := NewSignOutput(res)
	return Document{
		Title: "EIP-712 signature",
		Fields: []Field{
			{"signer", out.Signer.Hex()},
			{"primaryType", out.PrimaryType},
			{"digest", out.Digest.Hex()},
			{"r", out.R.Hex()},
			{"s", out.S.Hex()},
			{"v", fmt.Sprint(out.V)},
			{"signature", out.Signature.String()},
		},
		Value: out,
	}
}

// DigestResult 哈希结果
func DigestResult(d *eip712.Digest) Document {
	return Document{
		Title: "EIP-712 digest",
		Fields: []Field{
			{"primaryType", d.PrimaryType},
			{"encodedType", d.EncodedType},
			{"typeHash", d.TypeHash.Hex()},
			{"domainSeparator", d.DomainSeparator.Hex()},
			{"structHash", d.StructHash.Hex()},
			{"digest", d.Hash.Hex()},
		},
		Value: d,
	}
}

// SignatureParts split 命令的结果
func SignatureParts(sig eip712.Signature) Document {
	return Document{
		Title: "Signature",
		Fields: []Field{
			{"r", common.Hash(sig.R).Hex()},
			{"s", common.Hash(sig.S).Hex()},
			{"v", fmt.Sprint(sig.V)},
			{"recoveryParam", fmt.Sprint(sig.RecoveryParam())},
			{"yParityAndS", sig.YParityAndS().Hex()},
			{"compact", hexutil.Encode(sig.Compact())},
			{"signature", sig.Hex()},
		},
		Value: sig,
	}
}

// VerifyOutput verify 命令的 JSON 结构
type VerifyOutput struct {
	Digest    common.Hash     `json:"digest"`
	Recovered common.Address  `json:"recovered"`
	Expected  *common.Address `json:"expected,omitempty"`
	Valid     bool            `json:"valid"`
}

// Verification 校验结果。expected 为空时只输出恢复出的地址。
func Verification(out VerifyOutput) Document {
	fields := []Field{
		{"digest", out.Digest.Hex()},
		{"recovered", out.Recovered.Hex()},
	}
	if out.Expected != nil {
		fields = append(fields, Field{"expected", out.Expected.Hex()}, Field{"valid", fmt.Sprint(out.Valid)})
	}
	return Document{Title: "Signature verification", Fields: fields, Value: out}
}

// AddressResult address 命令的结果
func AddressResult(addr common.Address) Document {
	return Document{
		Title:  "Signer",
		Fields: []Field{{"address", addr.Hex()}},
		Value:  map[string]string{"address": addr.Hex()},
	}
}
