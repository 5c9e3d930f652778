package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "typedsig.log")

	require.NoError(t, Init(Config{Level: "debug", OutputFile: file, Console: &buf, NoColor: true}))
	Debugf("digest %s", "0x01")
	WithField("primaryType", "Agreement").Info("signed")

	assert.Contains(t, buf.String(), "digest 0x01")
	assert.Contains(t, buf.String(), "primaryType=Agreement")
	assert.Equal(t, file, GetCurrentLogFile())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "signed")
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "loud", Console: &buf, NoColor: true}))
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())

	Debugf("hidden")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestRedactHook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Console: &buf, NoColor: true, JSON: true}))

	key := "0xc85ef7d79691fe79573b1a7064c19c1a9819ebdbd1faaab1a8ec92344438aaf4"
	WithFields(logrus.Fields{
		"private_key": key,
		"mnemonic":    "test test test",
		"signer":      "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826",
	}).Infof("loaded private_key=%s", key)

	out := buf.String()
	assert.NotContains(t, out, key)
	assert.NotContains(t, out, "test test test")
	assert.Contains(t, out, "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826")
	assert.Contains(t, out, redacted)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "mnemonic: [REDACTED] rest", Redact("mnemonic: abandon rest"))
	assert.Equal(t, "secret=[REDACTED]", Redact(`secret="a b c"`))
	assert.Equal(t, "digest=0xabc", Redact("digest=0xabc"))
}
