package host

import "strings"

// builtins are names a when-clause may use that are not context keys.
var builtins = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true, "NaN": true, "Infinity": true,
	"typeof": true, "instanceof": true, "in": true, "new": true, "this": true, "void": true,
	"Math": true, "Number": true, "String": true, "Object": true, "Array": true, "JSON": true,
	"Boolean": true, "Date": true, "RegExp": true, "parseInt": true, "parseFloat": true,
	"isNaN": true, "isFinite": true, "startsWith": true, "endsWith": true, "contains": true,
}

// whenScope nests dotted context keys so "masterkey.mode" reads as a
// member access.
func whenScope(ctx map[string]any) map[string]any {
	scope := make(map[string]any, len(ctx))
	for k, v := range ctx {
		parts := strings.Split(k, ".")
		cur := scope
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return scope
}

// declareUnknown adds every context key named in when but missing from
// scope as null, so an unset key is falsy instead of a reference error.
func declareUnknown(scope map[string]any, when string) {
	for _, chain := range identChains(when) {
		if builtins[chain[0]] {
			continue
		}
		cur := scope
		for i, name := range chain {
			v, ok := cur[name]
			if !ok {
				if i == len(chain)-1 {
					cur[name] = nil
					break
				}
				next := make(map[string]any)
				cur[name] = next
				cur = next
				continue
			}
			next, isMap := v.(map[string]any)
			if !isMap {
				break
			}
			cur = next
		}
	}
}

// identChains returns the dotted identifier paths in src, such as
// ["masterkey", "mode"]. String literals and numbers are skipped.
func identChains(src string) [][]string {
	var chains [][]string
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipString(src, i)
		case isDigit(c):
			for i < len(src) && (isIdentPart(src[i]) || src[i] == '.') {
				i++
			}
		case isIdentStart(c):
			member := i > 0 && src[i-1] == '.'
			var chain []string
			for {
				start := i
				for i < len(src) && isIdentPart(src[i]) {
					i++
				}
				chain = append(chain, src[start:i])
				if i+1 < len(src) && src[i] == '.' && isIdentStart(src[i+1]) {
					i++
					continue
				}
				break
			}
			if !member {
				chains = append(chains, chain)
			}
		default:
			i++
		}
	}
	return chains
}

func skipString(src string, i int) int {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
