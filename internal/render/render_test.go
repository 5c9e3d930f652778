package render

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/typedsig/pkg/eip712"
)

func signAgreement(t *testing.T) *eip712.Result {
	t.Helper()
	contract := common.HexToAddress("0x61443969475EE1DB767f932D49F90C57B59AD58b")
	req := &eip712.Request{
		Domain: eip712.Domain{Name: "SoulBound", Version: "1", ChainID: big.NewInt(80001), VerifyingContract: &contract},
		Types: eip712.Schema{"Agreement": {
			{Name: "active", Type: "address"},
			{Name: "passive", Type: "address"},
			{Name: "tokenURI", Type: "string"},
		}},
		Message: eip712.Message{
			"active":   "0xdf39474cB1b8dC106b3636B1d854d4dE0Df446e4",
			"passive":  "0xC980bBe81d7AE0CcbF72B6AbD59534dd8d176c77",
			"tokenURI": "https://ipfs.io/ipfs/QmeSjSinHpPnmXmspMjwiXyN6zS4E9zccariGR3jxcaWtq/6588",
		},
	}
	// keccak256("cow")
	res, err := eip712.SignHex(req, "c85ef7d79691fe79573b1a7064c19c1a9819ebdbd1faaab1a8ec92344438aaf4")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return res
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, SignResult(signAgreement(t))); err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, buf.String())
	}
	for _, k := range []string{"r", "s", "v", "recoveryParam", "yParityAndS", "compact", "signature", "digest", "domainSeparator", "structHash", "signer"} {
		if _, ok := out[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	if out["r"] != "0x09bad4563ddfc395360cfc3bd3b848cbb0a52a41057a4c9a3d5f3b5ca29fc038" {
		t.Errorf("r = %v", out["r"])
	}
	if out["v"] != float64(27) {
		t.Errorf("v = %v", out["v"])
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Text, SignResult(signAgreement(t))); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "signer: 0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[5] != "v: 27" {
		t.Errorf("line 5 = %q", lines[5])
	}
}

func TestWrite_Pretty(t *testing.T) {
	var buf bytes.Buffer
	expected := common.HexToAddress("0x0000000000000000000000000000000000000001")
	doc := Verification(VerifyOutput{Recovered: common.HexToAddress("0x02"), Expected: &expected})
	if err := Write(&buf, Pretty, doc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Signature verification", "recovered", "valid", "false"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q:\n%s", want, out)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JSON, "JSON": JSON, "text": Text, " pretty ": Pretty} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestSignatureParts(t *testing.T) {
	doc := SignatureParts(signAgreement(t).Signature)
	var buf bytes.Buffer
	if err := Write(&buf, JSON, doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"recoveryParam": 0`) {
		t.Errorf("unexpected json:\n%s", buf.String())
	}
}

// split 与 sign 的 JSON 对同一签名使用相同的键
func TestSignatureKeyMatchesSignOutput(t *testing.T) {
	res := signAgreement(t)
	var parts, signed bytes.Buffer
	if err := Write(&parts, JSON, SignatureParts(res.Signature)); err != nil {
		t.Fatal(err)
	}
	if err := Write(&signed, JSON, SignResult(res)); err != nil {
		t.Fatal(err)
	}

	var a, b map[string]interface{}
	if err := json.Unmarshal(parts.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(signed.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"r", "s", "v", "recoveryParam", "yParityAndS", "compact", "signature"} {
		if a[key] == nil || a[key] != b[key] {
			t.Errorf("%s: split=%v sign=%v", key, a[key], b[key])
		}
	}
	if _, ok := a["serialized"]; ok {
		t.Error("unexpected serialized key")
	}
}
