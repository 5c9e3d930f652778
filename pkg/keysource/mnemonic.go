package keysource

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"encoding/base64"
	"os"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"

	"github.com/betbot/typedsig/pkg/eip712"
	"github.com/betbot/typedsig/pkg/secretstore"
)

func fromMnemonic(mnemonic, derivationPath string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	derivationPath = strings.TrimSpace(derivationPath)
	if mnemonic == "" {
		return nil, errors.New("mnemonic is required")
	}
	if derivationPath == "" {
		derivationPath = DefaultDerivationPath
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		// 不带原始错误，避免助记词片段出现在错误信息里
		return nil, errors.New("invalid mnemonic")
	}

	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid derivation path %q", derivationPath)
	}

	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "derive failed")
	}

	b, err := w.PrivateKeyBytes(acct)
	if err != nil {
		return nil, errors.Wrap(err, "private key failed")
	}
	defer zero(b)
	return eip712.PrivateKeyFromBytes(b)
}

func fromMnemonicFile(spec Spec) (*ecdsa.PrivateKey, error) {
	path := strings.TrimSpace(spec.MnemonicFile)
	if path == "" {
		return nil, errors.Errorf("mnemonic file is required (set %s)", EnvMnemonicFile)
	}
	masterKey, err := secretstore.ParseKey(spec.MasterKey)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", EnvMasterKey)
	}
	if masterKey == nil {
		return nil, errors.Errorf("%s is required (32 bytes, base64 or hex)", EnvMasterKey)
	}
	defer zero(masterKey)

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read mnemonic file %s", path)
	}
	enc := strings.TrimSpace(string(b))
	if enc == "" {
		return nil, errors.Errorf("mnemonic file is empty: %s", path)
	}
	mn, err := decryptFromString(masterKey, enc)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt mnemonic failed")
	}
	return fromMnemonic(mn, spec.DerivationPath)
}

// decryptFromString 解密 base64(nonce|ciphertext)
func decryptFromString(masterKey []byte, enc string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce := raw[:gcm.NonceSize()]
	ct := raw[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	defer zero(pt)
	return string(pt), nil
}
