// Command typedsig 对 EIP-712 结构化数据做哈希、签名与校验。
//
//	typedsig sign    -config agreement.yaml [-key-source hex|secretstore|mnemonic|mnemonic-file] [-format json|text|pretty]
//	typedsig hash    -config agreement.yaml
//	typedsig verify  -config agreement.yaml -signature 0x... [-address 0x...]
//	typedsig split   0x<65 或 64 字节签名>
//	typedsig join    -r 0x... -s 0x... -v 27
//	typedsig address [-key-source ...]
//
// 私钥只从环境变量、加密 secret store 或助记词读取，见 pkg/keysource。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/betbot/typedsig/pkg/config"
	"github.com/betbot/typedsig/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *cliEnv, args []string) error
}

var commands = []command{
	{"sign", "sign typed data with the configured key", runSign},
	{"hash", "print encodeType, typeHash, domain separator, struct hash and digest", runHash},
	{"verify", "recover the signer of a signature and optionally compare it", runVerify},
	{"split", "split a 65-byte or 64-byte compact signature into r, s, v", runSplit},
	{"join", "join r, s, v into a 65-byte signature", runJoin},
	{"address", "print the address of the configured key", runAddress},
}

// cliEnv 子命令共享的输出与通用参数
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Load .env (best-effort). If missing, fall back to real env vars.
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := logger.Init(logger.Config{
		Level:      getenv("TYPEDSIG_LOG_LEVEL", "info"),
		OutputFile: getenv("TYPEDSIG_LOG_FILE", ""),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		Console:    stderr,
		NoColor:    stderr != os.Stderr,
	}); err != nil {
		fmt.Fprintf(stderr, "error: init logger: %v\n", err)
		return 1
	}

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	env := &cliEnv{stdout: stdout, stderr: stderr}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(ctx, env, args[1:]); err != nil {
			if err != flag.ErrHelp {
				fmt.Fprintf(stderr, "error: %v\n", err)
			}
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "error: unknown command %q\n", args[0])
	usage(stderr)
	return 1
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: typedsig <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
