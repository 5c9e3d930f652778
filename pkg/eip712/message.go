package eip712

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// ParseAddress 解析地址。全小写/全大写直接接受，大小写混合时必须是合法的 EIP-55 校验和。
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return common.Address{}, fmt.Errorf("bad checksum for address %q", s)
		}
	}
	return addr, nil
}

// normalizeStruct 按类型定义规整消息：字段必须一一对应，值转换成 apitypes 能编码的形式
func normalizeStruct(s Schema, typeName string, data map[string]interface{}, path string) (map[string]interface{}, error) {
	fields := s[typeName]
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fieldPath := path + "." + f.Name
		v, ok := data[f.Name]
		if !ok || v == nil {
			return nil, newError(ErrSchemaMismatch, fieldPath, "missing field")
		}
		nv, err := normalizeValue(s, f.Type, v, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = nv
	}
	if len(data) > len(fields) {
		for name := range data {
			if _, ok := out[name]; !ok {
				return nil, newError(ErrSchemaMismatch, path+"."+name, "field is not declared in %s", typeName)
			}
		}
	}
	return out, nil
}

func normalizeValue(s Schema, typ string, v interface{}, path string) (interface{}, error) {
	elem, isArray, ok := splitArray(typ)
	if !ok {
		return nil, newError(ErrUnsupportedType, path, "unsupported array type %q", typ)
	}
	if isArray {
		items, ok := toSlice(v)
		if !ok {
			return nil, newError(ErrSchemaMismatch, path, "expected array for %s, got %T", typ, v)
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			nv, err := normalizeValue(s, elem, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	}

	if _, ok := s[typ]; ok {
		m, ok := toMap(v)
		if !ok {
			return nil, newError(ErrSchemaMismatch, path, "expected object for %s, got %T", typ, v)
		}
		return normalizeStruct(s, typ, m, path)
	}

	switch typ {
	case "address":
		switch x := v.(type) {
		case common.Address:
			return x.Hex(), nil
		case string:
			addr, err := ParseAddress(x)
			if err != nil {
				return nil, &Error{Kind: ErrSchemaMismatch, Path: path, Cause: err}
			}
			return addr.Hex(), nil
		}
		return nil, newError(ErrSchemaMismatch, path, "expected address string, got %T", v)
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, newError(ErrSchemaMismatch, path, "expected bool, got %T", v)
		}
		return b, nil
	case "string":
		str, ok := v.(string)
		if !ok {
			return nil, newError(ErrSchemaMismatch, path, "expected string, got %T", v)
		}
		if !utf8.ValidString(str) {
			return nil, newError(ErrEncodingFailure, path, "string is not valid UTF-8")
		}
		return str, nil
	case "bytes":
		return toBytes(v, path)
	}

	if n, ok := sizedType(typ, "bytes"); ok {
		b, err := toBytes(v, path)
		if err != nil {
			return nil, err
		}
		if len(b) != n {
			return nil, newError(ErrSchemaMismatch, path, "%s needs %d bytes, got %d", typ, n, len(b))
		}
		return b, nil
	}

	if bits, signed, ok := intBits(typ); ok {
		x, ok := toBigInt(v)
		if !ok {
			return nil, newError(ErrSchemaMismatch, path, "cannot use %v (%T) as %s", v, v, typ)
		}
		if !inRange(x, bits, signed) {
			return nil, newError(ErrSchemaMismatch, path, "%s out of range for %s", x, typ)
		}
		return (*math.HexOrDecimal256)(x), nil
	}

	return nil, newError(ErrUnsupportedType, path, "unknown type %q", typ)
}

func toSlice(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte 是 bytes 值，不当数组
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Message:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func toBytes(v interface{}, path string) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case hexutil.Bytes:
		return x, nil
	case common.Hash:
		return x.Bytes(), nil
	case string:
		b, err := hexutil.Decode(strings.TrimSpace(x))
		if err != nil {
			return nil, wrapError(ErrEncodingFailure, path, err, "decode hex")
		}
		return b, nil
	}
	return nil, newError(ErrSchemaMismatch, path, "expected 0x-hex bytes, got %T", v)
}

func toBigInt(v interface{}) (*big.Int, bool) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, false
		}
		return new(big.Int).Set(x), true
	case *math.HexOrDecimal256:
		if x == nil {
			return nil, false
		}
		return new(big.Int).Set((*big.Int)(x)), true
	case int:
		return big.NewInt(int64(x)), true
	case int8:
		return big.NewInt(int64(x)), true
	case int16:
		return big.NewInt(int64(x)), true
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case uint:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case float64:
		// JSON 数字默认是 float64，只接受整数值；超过 2^53 的值请写成字符串
		if x != x {
			return nil, false
		}
		n, acc := big.NewFloat(x).Int(nil)
		if acc != big.Exact {
			return nil, false
		}
		return n, true
	case json.Number:
		return parseBigString(string(x))
	case string:
		return parseBigString(x)
	}
	return nil, false
}

// parseBigString 支持十进制与 0x 十六进制，允许前导负号
func parseBigString(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if s == "" {
		return nil, false
	}
	x, ok := math.ParseBig256(s)
	if !ok {
		return nil, false
	}
	if neg {
		x.Neg(x)
	}
	return x, true
}

func inRange(x *big.Int, bits int, signed bool) bool {
	if !signed {
		return x.Sign() >= 0 && x.BitLen() <= bits
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	return x.Cmp(new(big.Int).Neg(limit)) >= 0 && x.Cmp(limit) < 0
}
