package main

import (
	"context"
	"flag"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/typedsig/internal/render"
	"github.com/betbot/typedsig/pkg/config"
	"github.com/betbot/typedsig/pkg/eip712"
	"github.com/betbot/typedsig/pkg/keysource"
	"github.com/betbot/typedsig/pkg/logger"
)

var errSignerMismatch = errors.New("recovered signer does not match expected address")

func newFlagSet(env *cliEnv, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

type keyFlags struct {
	source         *string
	derivationPath *string
	secretEntry    *string
}

func addKeyFlags(fs *flag.FlagSet) keyFlags {
	return keyFlags{
		source:         fs.String("key-source", getenv("TYPEDSIG_KEY_SOURCE", "auto"), "key source: auto, hex, secretstore, mnemonic, mnemonic-file"),
		derivationPath: fs.String("derivation-path", "", "BIP-44 path for mnemonic sources (default "+keysource.DefaultDerivationPath+")"),
		secretEntry:    fs.String("secret-entry", "", "secret store entry holding the key (default signer/private_key)"),
	}
}

func (k keyFlags) spec() (keysource.Spec, error) {
	if err := keysource.DisableCoreDumps(); err != nil {
		logger.Warnf("disable core dumps: %v", err)
	}
	kind, err := keysource.ParseKind(*k.source)
	if err != nil {
		return keysource.Spec{}, err
	}
	spec := keysource.FromEnv(kind)
	if *k.derivationPath != "" {
		spec.DerivationPath = *k.derivationPath
	}
	if *k.secretEntry != "" {
		spec.SecretEntry = *k.secretEntry
	}
	return spec, nil
}

func addFormatFlag(fs *flag.FlagSet) *string {
	return fs.String("format", getenv("TYPEDSIG_FORMAT", "json"), "output format: json, text, pretty")
}

func addConfigFlag(fs *flag.FlagSet) *string {
	return fs.String("config", getenv("TYPEDSIG_CONFIG", ""), "typed data request file (.yaml, .yml, .json)")
}

func loadRequest(path string) (*eip712.Request, error) {
	if path == "" {
		return nil, errors.New("-config is required")
	}
	doc, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Path: path, Cause: err}
	}
	return doc.ToRequest()
}

func write(env *cliEnv, format string, doc render.Document) error {
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}
	return render.Write(env.stdout, f, doc)
}

func runSign(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "sign")
	cfgPath := addConfigFlag(fs)
	format := addFormatFlag(fs)
	keys := addKeyFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadRequest(*cfgPath)
	if err != nil {
		return err
	}
	spec, err := keys.spec()
	if err != nil {
		return err
	}
	key, err := keysource.Resolve(ctx, spec)
	if err != nil {
		return err
	}
	res, err := eip712.Sign(req, key)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"primaryType": res.PrimaryType,
		"signer":      res.Signer.Hex(),
		"digest":      res.Hash.Hex(),
	}).Info("typed data signed")
	return write(env, *format, render.SignResult(res))
}

func runHash(_ context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "hash")
	cfgPath := addConfigFlag(fs)
	format := addFormatFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := loadRequest(*cfgPath)
	if err != nil {
		return err
	}
	d, err := eip712.Hash(req)
	if err != nil {
		return err
	}
	return write(env, *format, render.DigestResult(d))
}

func runVerify(_ context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "verify")
	cfgPath := addConfigFlag(fs)
	format := addFormatFlag(fs)
	sigHex := fs.String("signature", "", "0x-hex signature (65 bytes or 64-byte compact)")
	address := fs.String("address", "", "expected signer address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sigHex == "" {
		return errors.New("-signature is required")
	}

	req, err := loadRequest(*cfgPath)
	if err != nil {
		return err
	}
	sig, err := eip712.ParseSignature(*sigHex)
	if err != nil {
		return err
	}
	d, err := eip712.Hash(req)
	if err != nil {
		return err
	}
	recovered, err := eip712.RecoverAddress(d.Hash, sig)
	if err != nil {
		return err
	}

	out := render.VerifyOutput{Digest: d.Hash, Recovered: recovered, Valid: true}
	if *address != "" {
		expected, err := eip712.ParseAddress(*address)
		if err != nil {
			return errors.Wrap(err, "-address")
		}
		out.Expected = &expected
		out.Valid = expected == recovered
	}
	if err := write(env, *format, render.Verification(out)); err != nil {
		return err
	}
	if !out.Valid {
		return errSignerMismatch
	}
	return nil
}

func runSplit(_ context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "split")
	format := addFormatFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: typedsig split [-format json] 0x<signature>")
	}
	sig, err := eip712.ParseSignature(fs.Arg(0))
	if err != nil {
		return err
	}
	return write(env, *format, render.SignatureParts(sig))
}

func runJoin(_ context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "join")
	format := addFormatFlag(fs)
	r := fs.String("r", "", "0x-hex r (32 bytes)")
	s := fs.String("s", "", "0x-hex s (32 bytes)")
	v := fs.String("v", "", "recovery value: 27, 28, 0 or 1")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rb, err := hexutil.Decode(*r)
	if err != nil {
		return errors.Wrap(err, "-r")
	}
	sb, err := hexutil.Decode(*s)
	if err != nil {
		return errors.Wrap(err, "-s")
	}
	vn, err := strconv.ParseUint(strings.TrimSpace(*v), 0, 8)
	if err != nil {
		return errors.Wrap(err, "-v")
	}
	sig, err := eip712.JoinSignature(rb, sb, uint8(vn))
	if err != nil {
		return err
	}
	return write(env, *format, render.SignatureParts(sig))
}

func runAddress(ctx context.Context, env *cliEnv, args []string) error {
	fs := newFlagSet(env, "address")
	format := addFormatFlag(fs)
	keys := addKeyFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, err := keys.spec()
	if err != nil {
		return err
	}
	key, err := keysource.Resolve(ctx, spec)
	if err != nil {
		return err
	}
	addr, err := eip712.Address(key)
	if err != nil {
		return err
	}
	return write(env, *format, render.AddressResult(addr))
}
