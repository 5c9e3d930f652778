// Package keysource resolves the signing key from externally supplied configuration.
//
// Keys are never read from request documents, never logged and never cached:
// each Resolve call loads the material, converts it and zeroes the intermediate bytes.
package keysource

import (
	"context"
	"crypto/ecdsa"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/typedsig/pkg/eip712"
	"github.com/betbot/typedsig/pkg/logger"
	"github.com/betbot/typedsig/pkg/secretstore"
)

// Kind 私钥来源
type Kind string

const (
	KindAuto         Kind = ""
	KindHex          Kind = "hex"
	KindSecretStore  Kind = "secretstore"
	KindMnemonic     Kind = "mnemonic"
	KindMnemonicFile Kind = "mnemonic-file"
)

// 环境变量
const (
	EnvPrivateKey     = "TYPEDSIG_PRIVATE_KEY"
	EnvSecretDB       = "TYPEDSIG_SECRET_DB"
	EnvSecretKey      = "TYPEDSIG_SECRET_KEY"
	EnvSecretEntry    = "TYPEDSIG_SECRET_ENTRY"
	EnvMnemonic       = "TYPEDSIG_MNEMONIC"
	EnvDerivationPath = "TYPEDSIG_DERIVATION_PATH"
	EnvMnemonicFile   = "TYPEDSIG_MNEMONIC_FILE"
	EnvMasterKey      = "TYPEDSIG_MASTER_KEY"
)

// DefaultDerivationPath 以太坊第一个账户
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// Spec 描述从哪里加载私钥。未使用的字段忽略。
type Spec struct {
	Kind Kind

	PrivateKey string // hex

	SecretDB    string // Badger 目录
	SecretKey   string // Badger 加密密钥，hex 或 base64
	SecretEntry string // 默认 secretstore.DefaultEntry

	Mnemonic       string
	DerivationPath string
	MnemonicFile   string // base64(nonce|ciphertext)，AES-GCM
	MasterKey      string // 解密助记词文件的 32 字节密钥
}

// FromEnv 从环境变量填充 Spec
func FromEnv(kind Kind) Spec {
	return Spec{
		Kind:           kind,
		PrivateKey:     os.Getenv(EnvPrivateKey),
		SecretDB:       os.Getenv(EnvSecretDB),
		SecretKey:      os.Getenv(EnvSecretKey),
		SecretEntry:    os.Getenv(EnvSecretEntry),
		Mnemonic:       os.Getenv(EnvMnemonic),
		DerivationPath: os.Getenv(EnvDerivationPath),
		MnemonicFile:   os.Getenv(EnvMnemonicFile),
		MasterKey:      os.Getenv(EnvMasterKey),
	}
}

// ParseKind 解析 -key-source 参数，"auto" 与空串等价
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAuto, "auto":
		return KindAuto, nil
	case KindHex, KindSecretStore, KindMnemonic, KindMnemonicFile:
		return k, nil
	default:
		return "", errors.Errorf("unknown key source %q (hex, secretstore, mnemonic, mnemonic-file)", s)
	}
}

// detect 自动模式下按 hex > secretstore > mnemonic > mnemonic-file 选择第一个已配置的来源
func (s Spec) detect() Kind {
	switch {
	case strings.TrimSpace(s.PrivateKey) != "":
		return KindHex
	case strings.TrimSpace(s.SecretDB) != "":
		return KindSecretStore
	case strings.TrimSpace(s.Mnemonic) != "":
		return KindMnemonic
	case strings.TrimSpace(s.MnemonicFile) != "":
		return KindMnemonicFile
	}
	return KindAuto
}

// Resolve 加载私钥。所有失败都归类为 eip712.ErrInvalidKey。
func Resolve(ctx context.Context, spec Spec) (*ecdsa.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, invalidKey(spec.Kind, err)
	}
	kind := spec.Kind
	if kind == KindAuto {
		kind = spec.detect()
	}

	var (
		key *ecdsa.PrivateKey
		err error
	)
	switch kind {
	case KindHex:
		key, err = fromHex(spec.PrivateKey)
	case KindSecretStore:
		key, err = fromSecretStore(spec)
	case KindMnemonic:
		key, err = fromMnemonic(spec.Mnemonic, spec.DerivationPath)
	case KindMnemonicFile:
		key, err = fromMnemonicFile(spec)
	case KindAuto:
		err = errors.Errorf("no key source configured (set %s, %s, %s or %s)", EnvPrivateKey, EnvSecretDB, EnvMnemonic, EnvMnemonicFile)
	default:
		err = errors.Errorf("unknown key source %q", kind)
	}
	if err != nil {
		return nil, invalidKey(kind, err)
	}

	logger.WithFields(logrus.Fields{
		"source": string(kind),
		"signer": signerHex(key),
	}).Debug("signing key resolved")
	return key, nil
}

func invalidKey(kind Kind, cause error) error {
	if errors.Is(cause, eip712.ErrInvalidKey) {
		return cause
	}
	path := "keysource"
	if kind != KindAuto {
		path += "." + string(kind)
	}
	return &eip712.Error{Kind: eip712.ErrInvalidKey, Path: path, Cause: cause}
}

func signerHex(key *ecdsa.PrivateKey) string {
	addr, err := eip712.Address(key)
	if err != nil {
		return ""
	}
	return addr.Hex()
}

func fromHex(raw string) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.Errorf("private key is empty (set %s)", EnvPrivateKey)
	}
	return eip712.ParsePrivateKey(raw)
}

func fromSecretStore(spec Spec) (*ecdsa.PrivateKey, error) {
	encKey, err := secretstore.ParseKey(spec.SecretKey)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", EnvSecretKey)
	}
	defer zero(encKey)

	store, err := secretstore.Open(secretstore.OpenOptions{Path: spec.SecretDB, EncryptionKey: encKey})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entry := strings.TrimSpace(spec.SecretEntry)
	if entry == "" {
		entry = secretstore.DefaultEntry
	}
	raw, err := store.Get(entry)
	if err != nil {
		return nil, err
	}
	defer zero(raw)
	return eip712.ParsePrivateKey(string(raw))
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
