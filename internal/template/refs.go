package template

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// reference is a Ref, Fn::GetAtt or Fn::Sub token found in a property tree.
type reference struct {
	Name      string
	Attribute string // empty for Ref
	Path      string
}

var subToken = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// collectRefs walks a normalized property tree and returns every reference
// in a deterministic order.
func collectRefs(path string, value any) []reference {
	var refs []reference
	walkRefs(path, value, &refs)
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Path < refs[j].Path
	})
	return refs
}

func walkRefs(path string, value any, refs *[]reference) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 1 {
			if name, ok := v["Ref"].(string); ok {
				*refs = append(*refs, reference{Name: name, Path: path})
				return
			}
			if getAtt, ok := v["Fn::GetAtt"]; ok {
				if ref, ok := parseGetAtt(getAtt); ok {
					ref.Path = path
					*refs = append(*refs, ref)
					return
				}
			}
			if sub, ok := v["Fn::Sub"]; ok {
				walkSub(path, sub, refs)
				return
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkRefs(joinPath(path, k), v[k], refs)
		}
	case []any:
		for i, elem := range v {
			walkRefs(joinPath(path, strconv.Itoa(i)), elem, refs)
		}
	}
}

// parseGetAtt accepts both ["Name", "Attr"] and "Name.Attr" forms.
func parseGetAtt(v any) (reference, bool) {
	switch g := v.(type) {
	case []any:
		if len(g) != 2 {
			return reference{}, false
		}
		name, ok1 := g[0].(string)
		attr, ok2 := g[1].(string)
		if !ok1 || !ok2 {
			return reference{}, false
		}
		return reference{Name: name, Attribute: attr}, true
	case string:
		name, attr, ok := strings.Cut(g, ".")
		if !ok {
			return reference{}, false
		}
		return reference{Name: name, Attribute: attr}, true
	}
	return reference{}, false
}

// walkSub extracts ${Name} and ${Name.Attr} tokens. Names bound by the
// variable map of the two-element form are local and not references.
func walkSub(path string, sub any, refs *[]reference) {
	var str string
	locals := map[string]bool{}

	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) != 2 {
			return
		}
		str, _ = s[0].(string)
		if vars, ok := s[1].(map[string]any); ok {
			for name, val := range vars {
				locals[name] = true
				walkRefs(joinPath(path, name), val, refs)
			}
		}
	default:
		return
	}

	for _, m := range subToken.FindAllStringSubmatch(str, -1) {
		token := m[1]
		if strings.Contains(token, "::") || locals[token] {
			continue
		}
		name, attr, _ := strings.Cut(token, ".")
		if locals[name] {
			continue
		}
		*refs = append(*refs, reference{Name: name, Attribute: attr, Path: path})
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
