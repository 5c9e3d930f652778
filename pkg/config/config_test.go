package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/betbot/typedsig/pkg/eip712"
)

func TestLoadFromFile_YAML(t *testing.T) {
	req, err := LoadFromFile("testdata/agreement.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r, err := req.ToRequest()
	if err != nil {
		t.Fatalf("to request: %v", err)
	}
	d, err := eip712.Hash(r)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if got, want := d.Hash.Hex(), "0x971765d6bade6a78b0703f221e253cc1cca523665452f90abe73d8e424729207"; got != want {
		t.Fatalf("digest = %s, want %s", got, want)
	}
}

func TestLoadFromFile_V4JSON(t *testing.T) {
	req, err := LoadFromFile("testdata/mail_v4.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r, err := req.ToRequest()
	if err != nil {
		t.Fatalf("to request: %v", err)
	}
	if r.Domain.ChainID.Int64() != 1 {
		t.Fatalf("chainId = %s", r.Domain.ChainID)
	}
	d, err := eip712.Hash(r)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if got, want := d.Hash.Hex(), "0xbe609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2"; got != want {
		t.Fatalf("digest = %s, want %s", got, want)
	}
}

func TestParse_StringEncodedJSON(t *testing.T) {
	raw, err := os.ReadFile("testdata/mail_v4.json")
	if err != nil {
		t.Fatal(err)
	}
	quoted, err := jsonQuote(raw)
	if err != nil {
		t.Fatal(err)
	}
	req, err := Parse(quoted, "json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.PrimaryType != "Mail" || len(req.Types) != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvChainID, "137")
	t.Setenv(EnvVerifyingContract, "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC")
	t.Setenv(EnvDomainName, "Other")
	t.Setenv(EnvDomainVersion, "2")

	req, err := LoadFromFile("testdata/agreement.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r, err := req.ToRequest()
	if err != nil {
		t.Fatalf("to request: %v", err)
	}
	if r.Domain.ChainID.Int64() != 137 || r.Domain.Name != "Other" || r.Domain.Version != "2" {
		t.Fatalf("env override not applied: %+v", r.Domain)
	}
	if r.Domain.VerifyingContract.Hex() != "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC" {
		t.Fatalf("contract = %s", r.Domain.VerifyingContract.Hex())
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.toml":   "x = 1",
		"bad.yaml":   "domain: [",
		"bad.json":   "{",
		"empty.yaml": "types: {}\n",
	}
	for name, content := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		req, err := LoadFromFile(p)
		if err == nil {
			err = req.Validate()
		}
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestToRequest_DomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		domain Domain
		kind   error
	}{
		{"chainId text", Domain{ChainID: "abc"}, eip712.ErrSchemaMismatch},
		{"chainId fraction", Domain{ChainID: 1.5}, eip712.ErrSchemaMismatch},
		{"contract", Domain{VerifyingContract: "0x1234"}, eip712.ErrSchemaMismatch},
		{"salt hex", Domain{Salt: "0xzz"}, eip712.ErrEncodingFailure},
		{"salt length", Domain{Salt: "0x01"}, eip712.ErrSchemaMismatch},
	}
	for _, tc := range cases {
		req := &Request{Domain: tc.domain}
		_, err := req.ToRequest()
		if eip712.KindOf(err) != tc.kind {
			t.Errorf("%s: got %v, want kind %v", tc.name, err, tc.kind)
		}
	}
}

func TestParseChainID_Float(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{80001, "80001"},
		{1 << 63, "9223372036854775808"},
		{1 << 64, "18446744073709551616"},
	}
	for _, tc := range cases {
		id, err := parseChainID(tc.in)
		if err != nil {
			t.Fatalf("%v: %v", tc.in, err)
		}
		if id.String() != tc.want {
			t.Errorf("%v: got %s, want %s", tc.in, id, tc.want)
		}
	}

	for _, bad := range []float64{0.5, -1, math.NaN(), math.Inf(1)} {
		if _, err := parseChainID(bad); err == nil {
			t.Errorf("%v: expected error", bad)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte("TYPEDSIG_TEST_LOADENV=yes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TYPEDSIG_TEST_LOADENV", "")
	os.Unsetenv("TYPEDSIG_TEST_LOADENV")

	if err := LoadEnv(p, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("TYPEDSIG_TEST_LOADENV"); got != "yes" {
		t.Fatalf("env = %q", got)
	}
}

func jsonQuote(b []byte) ([]byte, error) {
	return json.Marshal(string(b))
}
