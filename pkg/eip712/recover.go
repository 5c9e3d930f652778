package eip712

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverAddress 从摘要和签名恢复签名者地址
func RecoverAddress(digest common.Hash, sig Signature) (common.Address, error) {
	raw := sig.Bytes()
	raw[64] = sig.RecoveryParam()
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, wrapError(ErrEncodingFailure, "signature", err, "recover public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify 重新计算请求摘要并检查签名是否来自 expected
func Verify(req *Request, sig Signature, expected common.Address) (common.Address, bool, error) {
	digest, err := Hash(req)
	if err != nil {
		return common.Address{}, false, err
	}
	recovered, err := RecoverAddress(digest.Hash, sig)
	if err != nil {
		return common.Address{}, false, err
	}
	return recovered, recovered == expected, nil
}
