package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Fields 按 EIP-712 规定的顺序返回已设置的域字段
func (d Domain) Fields() []Field {
	var fields []Field
	if d.Name != "" {
		fields = append(fields, Field{Name: "name", Type: "string"})
	}
	if d.Version != "" {
		fields = append(fields, Field{Name: "version", Type: "string"})
	}
	if d.ChainID != nil {
		fields = append(fields, Field{Name: "chainId", Type: "uint256"})
	}
	if d.VerifyingContract != nil {
		fields = append(fields, Field{Name: "verifyingContract", Type: "address"})
	}
	if d.Salt != nil {
		fields = append(fields, Field{Name: "salt", Type: "bytes32"})
	}
	return fields
}

// resolveFields 使用调用方声明的 EIP712Domain（如有），否则按已设置字段推导
func (d Domain) resolveFields(declared []Field) ([]Field, error) {
	derived := d.Fields()
	if len(derived) == 0 {
		return nil, newError(ErrSchemaMismatch, DomainType, "domain is empty")
	}
	if d.ChainID != nil && d.ChainID.Sign() < 0 {
		return nil, newError(ErrSchemaMismatch, DomainType+".chainId", "negative chain id %s", d.ChainID)
	}
	if declared == nil {
		return derived, nil
	}

	want := make(map[string]string, len(derived))
	for _, f := range derived {
		want[f.Name] = f.Type
	}
	if len(declared) != len(derived) {
		return nil, newError(ErrSchemaMismatch, DomainType, "declared %d fields but domain sets %d", len(declared), len(derived))
	}
	for _, f := range declared {
		typ, ok := want[f.Name]
		if !ok {
			return nil, newError(ErrSchemaMismatch, DomainType+"."+f.Name, "field has no value in domain")
		}
		if typ != f.Type {
			return nil, newError(ErrSchemaMismatch, DomainType+"."+f.Name, "declared type %q, expected %q", f.Type, typ)
		}
	}
	return declared, nil
}

func (d Domain) toAPI() apitypes.TypedDataDomain {
	out := apitypes.TypedDataDomain{
		Name:    d.Name,
		Version: d.Version,
	}
	if d.ChainID != nil {
		out.ChainId = (*math.HexOrDecimal256)(new(big.Int).Set(d.ChainID))
	}
	if d.VerifyingContract != nil {
		out.VerifyingContract = d.VerifyingContract.Hex()
	}
	if d.Salt != nil {
		out.Salt = d.Salt.Hex()
	}
	return out
}
