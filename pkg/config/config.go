// Package config 加载签名请求文件（YAML/JSON），并应用环境变量覆盖。
//
// 文件格式与 eth_signTypedData_v4 的 JSON 结构一致：domain / types / primaryType / message。
// 私钥永远不从请求文件读取。
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/betbot/typedsig/pkg/eip712"
)

// 环境变量覆盖
const (
	EnvChainID           = "TYPEDSIG_CHAIN_ID"
	EnvVerifyingContract = "TYPEDSIG_VERIFYING_CONTRACT"
	EnvDomainName        = "TYPEDSIG_DOMAIN_NAME"
	EnvDomainVersion     = "TYPEDSIG_DOMAIN_VERSION"
)

// Domain 域配置。chainId 可以是数字、十进制字符串或 0x 十六进制字符串。
type Domain struct {
	Name              string      `yaml:"name,omitempty" json:"name,omitempty"`
	Version           string      `yaml:"version,omitempty" json:"version,omitempty"`
	ChainID           interface{} `yaml:"chainId,omitempty" json:"chainId,omitempty"`
	VerifyingContract string      `yaml:"verifyingContract,omitempty" json:"verifyingContract,omitempty"`
	Salt              string      `yaml:"salt,omitempty" json:"salt,omitempty"`
}

// Request 签名请求文件结构（用于 YAML/JSON 解析）
type Request struct {
	Domain      Domain                 `yaml:"domain" json:"domain"`
	Types       eip712.Schema          `yaml:"types" json:"types"`
	PrimaryType string                 `yaml:"primaryType,omitempty" json:"primaryType,omitempty"`
	Message     map[string]interface{} `yaml:"message" json:"message"`
}

// LoadEnv 加载 .env 文件，文件不存在时忽略
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("加载环境文件失败 %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromFile 从指定文件加载请求，并应用环境变量覆盖
func LoadFromFile(filePath string) (*Request, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("请求文件路径为空")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取请求文件失败: %w", err)
	}

	var format string
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json":
		format = "json"
	default:
		return nil, fmt.Errorf("不支持的请求文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	req, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("加载请求文件失败 %s: %w", filePath, err)
	}
	req.ApplyEnv()
	return req, nil
}

// Parse 解析请求内容。JSON 也接受整体被编码成字符串的形式（钱包 RPC 常见）。
func Parse(data []byte, format string) (*Request, error) {
	var req Request
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("解析 YAML 失败: %w", err)
		}
	case "json":
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '"' {
			var inner string
			if err := json.Unmarshal(data, &inner); err != nil {
				return nil, fmt.Errorf("解析 JSON 字符串失败: %w", err)
			}
			data = []byte(inner)
		}
		// UseNumber 保留大整数精度
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("解析 JSON 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的格式: %s", format)
	}
	return &req, nil
}

// ApplyEnv 环境变量覆盖域字段
func (r *Request) ApplyEnv() {
	if v := getEnv(EnvDomainName, ""); v != "" {
		r.Domain.Name = v
	}
	if v := getEnv(EnvDomainVersion, ""); v != "" {
		r.Domain.Version = v
	}
	if v := getEnv(EnvChainID, ""); v != "" {
		r.Domain.ChainID = v
	}
	if v := getEnv(EnvVerifyingContract, ""); v != "" {
		r.Domain.VerifyingContract = v
	}
}

// Validate 校验请求是否完整
func (r *Request) Validate() error {
	if len(r.Types) == 0 {
		return fmt.Errorf("types 不能为空")
	}
	if len(r.Message) == 0 {
		return fmt.Errorf("message 不能为空")
	}
	d := r.Domain
	if d.Name == "" && d.Version == "" && d.ChainID == nil && d.VerifyingContract == "" && d.Salt == "" {
		return fmt.Errorf("domain 不能为空")
	}
	if r.PrimaryType != "" {
		if _, ok := r.Types[r.PrimaryType]; !ok {
			return fmt.Errorf("primaryType %s 未在 types 中定义", r.PrimaryType)
		}
	}
	return nil
}

// ToRequest 转换为 eip712.Request。域字段格式错误归类为 SchemaMismatch。
func (r *Request) ToRequest() (*eip712.Request, error) {
	domain, err := r.Domain.toDomain()
	if err != nil {
		return nil, err
	}
	return &eip712.Request{
		Domain:      domain,
		Types:       r.Types,
		PrimaryType: r.PrimaryType,
		Message:     eip712.Message(r.Message),
	}, nil
}

func (d Domain) toDomain() (eip712.Domain, error) {
	out := eip712.Domain{Name: d.Name, Version: d.Version}

	if d.ChainID != nil {
		id, err := parseChainID(d.ChainID)
		if err != nil {
			return eip712.Domain{}, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Path: "EIP712Domain.chainId", Cause: err}
		}
		out.ChainID = id
	}

	if s := strings.TrimSpace(d.VerifyingContract); s != "" {
		addr, err := eip712.ParseAddress(s)
		if err != nil {
			return eip712.Domain{}, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Path: "EIP712Domain.verifyingContract", Cause: err}
		}
		out.VerifyingContract = &addr
	}

	if s := strings.TrimSpace(d.Salt); s != "" {
		b, err := hexutil.Decode(s)
		if err != nil {
			return eip712.Domain{}, &eip712.Error{Kind: eip712.ErrEncodingFailure, Path: "EIP712Domain.salt", Cause: err}
		}
		if len(b) != common.HashLength {
			return eip712.Domain{}, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Path: "EIP712Domain.salt", Cause: fmt.Errorf("salt 需要 32 字节，实际 %d", len(b))}
		}
		salt := common.BytesToHash(b)
		out.Salt = &salt
	}
	return out, nil
}

func parseChainID(v interface{}) (*big.Int, error) {
	var s string
	switch x := v.(type) {
	case int:
		s = fmt.Sprint(x)
	case int64:
		s = fmt.Sprint(x)
	case uint64:
		s = fmt.Sprint(x)
	case float64:
		if x != x {
			return nil, fmt.Errorf("chainId 必须是整数: %v", x)
		}
		n, acc := big.NewFloat(x).Int(nil)
		if acc != big.Exact {
			return nil, fmt.Errorf("chainId 必须是整数: %v", x)
		}
		s = n.String()
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return nil, fmt.Errorf("chainId 类型不支持: %T", v)
	}
	id, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("chainId 无效: %q", s)
	}
	return id, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
