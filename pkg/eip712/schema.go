package eip712

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// go-ethereum 以首字母大写识别引用类型，这里保持一致
var structNameRegexp = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// splitArray 拆掉 [] 后缀。go-ethereum 只支持一维动态数组，T[n] 与 T[][] 不接受。
func splitArray(t string) (elem string, isArray bool, ok bool) {
	if !strings.HasSuffix(t, "]") {
		return t, false, true
	}
	elem = strings.TrimSuffix(t, "[]")
	if elem == t || elem == "" || strings.ContainsAny(elem, "[]") {
		return "", true, false
	}
	return elem, true, true
}

// baseType 去掉数组后缀
func baseType(t string) (string, bool) {
	elem, _, ok := splitArray(t)
	return elem, ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// sizedType 解析 bytesN / intN / uintN 的位宽
func sizedType(t, prefix string) (int, bool) {
	if !strings.HasPrefix(t, prefix) {
		return 0, false
	}
	rest := t[len(prefix):]
	if !isDigits(rest) || rest[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func intBits(t string) (bits int, signed bool, ok bool) {
	if n, ok := sizedType(t, "uint"); ok {
		return n, false, n%8 == 0 && n >= 8 && n <= 256
	}
	if n, ok := sizedType(t, "int"); ok {
		return n, true, n%8 == 0 && n >= 8 && n <= 256
	}
	return 0, false, false
}

func isPrimitive(t string) bool {
	switch t {
	case "address", "bool", "string", "bytes":
		return true
	}
	if n, ok := sizedType(t, "bytes"); ok {
		return n >= 1 && n <= 32
	}
	_, _, ok := intBits(t)
	return ok
}

func (s Schema) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate 校验类型定义：字段类型必须是基础类型或已声明的结构体，且不能有环
func (s Schema) Validate() error {
	if len(s) == 0 {
		return newError(ErrSchemaMismatch, "", "no struct types declared")
	}
	for _, name := range s.names() {
		if !structNameRegexp.MatchString(name) {
			return newError(ErrUnsupportedType, name, "invalid struct type name %q", name)
		}
		seen := make(map[string]bool, len(s[name]))
		for _, f := range s[name] {
			path := name + "." + f.Name
			if f.Name == "" {
				return newError(ErrSchemaMismatch, name, "field with empty name")
			}
			if seen[f.Name] {
				return newError(ErrSchemaMismatch, path, "duplicate field")
			}
			seen[f.Name] = true

			base, ok := baseType(f.Type)
			if !ok {
				return newError(ErrUnsupportedType, path, "unsupported array type %q, only T[] is allowed", f.Type)
			}
			if _, declared := s[base]; declared {
				continue
			}
			if !isPrimitive(base) {
				return newError(ErrUnsupportedType, path, "unknown type %q", f.Type)
			}
		}
	}
	return s.checkCycles()
}

func (s Schema) checkCycles() error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(s))
	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch state[name] {
		case visiting:
			return newError(ErrSchemaMismatch, name, "recursive type reference %s", strings.Join(append(chain, name), " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		for _, f := range s[name] {
			base, _ := baseType(f.Type)
			if _, ok := s[base]; ok {
				if err := visit(base, append(chain, name)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}
	for _, name := range s.names() {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Dependencies 返回 primary 及其传递引用的结构体，primary 在前，其余按字母序
func (s Schema) Dependencies(primary string) []string {
	found := map[string]bool{}
	var walk func(name string)
	walk = func(name string) {
		if found[name] {
			return
		}
		if _, ok := s[name]; !ok {
			return
		}
		found[name] = true
		for _, f := range s[name] {
			base, _ := baseType(f.Type)
			walk(base)
		}
	}
	walk(primary)
	delete(found, primary)

	deps := make([]string, 0, len(found))
	for name := range found {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return append([]string{primary}, deps...)
}

// EncodeType 生成规范类型串，例如 Mail(Person from,Person to,string contents)Person(string name,address wallet)
func (s Schema) EncodeType(primary string) (string, error) {
	if _, ok := s[primary]; !ok {
		return "", newError(ErrSchemaMismatch, primary, "type is not declared")
	}
	var b strings.Builder
	for _, dep := range s.Dependencies(primary) {
		b.WriteString(dep)
		b.WriteByte('(')
		for i, f := range s[dep] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.Type)
			b.WriteByte(' ')
			b.WriteString(f.Name)
		}
		b.WriteByte(')')
	}
	return b.String(), nil
}

// TypeHash keccak256(EncodeType(primary))
func (s Schema) TypeHash(primary string) (common.Hash, error) {
	enc, err := s.EncodeType(primary)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte(enc)), nil
}

// InferPrimaryType 找出唯一一个不被其他类型引用的结构体（EIP712Domain 除外）
func (s Schema) InferPrimaryType() (string, error) {
	referenced := map[string]bool{}
	for name, fields := range s {
		for _, f := range fields {
			base, _ := baseType(f.Type)
			if base != name {
				referenced[base] = true
			}
		}
	}
	var roots []string
	for _, name := range s.names() {
		if name == DomainType || referenced[name] {
			continue
		}
		roots = append(roots, name)
	}
	switch len(roots) {
	case 0:
		return "", newError(ErrSchemaMismatch, "", "no primary type candidate")
	case 1:
		return roots[0], nil
	default:
		return "", newError(ErrSchemaMismatch, "", "ambiguous primary type: %s", strings.Join(roots, ", "))
	}
}
