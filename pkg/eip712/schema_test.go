package eip712

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	valid := []string{"address", "bool", "string", "bytes", "bytes1", "bytes32", "uint8", "uint256", "int16", "Person", "Person[]", "bytes32[]", "uint256[]"}
	for _, typ := range valid {
		s := Schema{
			"Person": {{Name: "name", Type: "string"}},
			"Root":   {{Name: "f", Type: typ}},
		}
		assert.NoError(t, s.Validate(), typ)
	}

	unsupported := []string{"uint", "int", "uint7", "uint264", "int0", "bytes0", "bytes33", "byte", "Person[x]", "Person[0]", "Person[2]", "uint256[2]", "uint256[][]", "uint256[][3]", "Person[]]", "[]", "Missing", "float"}
	for _, typ := range unsupported {
		s := Schema{
			"Person": {{Name: "name", Type: "string"}},
			"Root":   {{Name: "f", Type: typ}},
		}
		assert.ErrorIs(t, s.Validate(), ErrUnsupportedType, typ)
	}
}

func TestSchema_ValidateStructure(t *testing.T) {
	assert.ErrorIs(t, Schema{}.Validate(), ErrSchemaMismatch)
	assert.ErrorIs(t, Schema{"A": {{Name: "", Type: "string"}}}.Validate(), ErrSchemaMismatch)
	assert.ErrorIs(t, Schema{"A": {{Name: "a", Type: "A"}}}.Validate(), ErrSchemaMismatch)
	assert.ErrorIs(t, Schema{"lower": {{Name: "a", Type: "string"}}}.Validate(), ErrUnsupportedType)
}

func TestSchema_EncodeType(t *testing.T) {
	s := Schema{
		"Transaction": {
			{Name: "to", Type: "Person"},
			{Name: "assets", Type: "Asset[]"},
		},
		"Person": {
			{Name: "wallet", Type: "address"},
			{Name: "home", Type: "Address"},
		},
		"Asset":   {{Name: "amount", Type: "uint256"}},
		"Address": {{Name: "street", Type: "string"}},
	}
	enc, err := s.EncodeType("Transaction")
	require.NoError(t, err)
	assert.Equal(t, "Transaction(Person to,Asset[] assets)Address(string street)Asset(uint256 amount)Person(address wallet,Address home)", enc)

	assert.Equal(t, []string{"Person", "Address"}, s.Dependencies("Person"))

	h1, err := s.TypeHash("Asset")
	require.NoError(t, err)
	h2, err := Schema{"Asset": {{Name: "amount", Type: "uint256"}}}.TypeHash("Asset")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = s.EncodeType("Nope")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSchema_InferPrimaryType(t *testing.T) {
	primary, err := agreementRequest().Types.InferPrimaryType()
	require.NoError(t, err)
	assert.Equal(t, "Agreement", primary)

	withDomain := Schema{
		DomainType: {{Name: "name", Type: "string"}},
		"Mail":     {{Name: "to", Type: "Person"}},
		"Person":   {{Name: "name", Type: "string"}},
	}
	primary, err = withDomain.InferPrimaryType()
	require.NoError(t, err)
	assert.Equal(t, "Mail", primary)

	ambiguous := Schema{
		"A": {{Name: "x", Type: "string"}},
		"B": {{Name: "y", Type: "string"}},
	}
	_, err = ambiguous.InferPrimaryType()
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestParseAddress(t *testing.T) {
	for _, s := range []string{
		"0xdf39474cB1b8dC106b3636B1d854d4dE0Df446e4",
		"0xdf39474cb1b8dc106b3636b1d854d4de0df446e4",
		"0xDF39474CB1B8DC106B3636B1D854D4DE0DF446E4",
		"df39474cb1b8dc106b3636b1d854d4de0df446e4",
	} {
		addr, err := ParseAddress(s)
		require.NoError(t, err, s)
		assert.Equal(t, "0xdf39474cB1b8dC106b3636B1d854d4dE0Df446e4", addr.Hex())
	}
	for _, s := range []string{"", "0x1234", "0xdf39474cB1b8dC106b3636B1d854d4dE0Df446E4", "0xzz39474cb1b8dc106b3636b1d854d4de0df446e4"} {
		_, err := ParseAddress(s)
		assert.Error(t, err, s)
	}
}
