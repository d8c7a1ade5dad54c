// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    appointment.TemplateDiff
	Summary appointment.DiffSummary
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(template1, template2 *appointment.Template, opts Options) (*Result, error) {
	if template1 == nil || template2 == nil {
		return nil, fmt.Errorf("cannot compare a nil template")
	}
	result := &Result{}

	res1 := template1.Resources
	res2 := template2.Resources

	// Find added resources (in template2 but not in template1)
	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, appointment.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find removed resources (in template1 but not in template2)
	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, appointment.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find modified resources
	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, appointment.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	result.Diff.Outputs = compareOutputs(template1.Outputs, template2.Outputs, opts)

	// Sort entries for consistent output
	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)
	sortEntries(result.Diff.Outputs)

	result.Summary = appointment.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
		Outputs:  len(result.Diff.Outputs),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified + result.Summary.Outputs

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := template.Load(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := template.Load(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 appointment.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareValues("", toAny(def1.Properties), toAny(def2.Properties), opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %q → %q", def1.DeletionPolicy, def2.DeletionPolicy))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %q → %q", def1.UpdateReplacePolicy, def2.UpdateReplacePolicy))
	}

	sort.Strings(changes)
	return changes
}

// compareOutputs reports added, removed and modified outputs.
func compareOutputs(out1, out2 map[string]appointment.Output, opts Options) []appointment.DiffEntry {
	var entries []appointment.DiffEntry

	for name := range out2 {
		if _, exists := out1[name]; !exists {
			entries = append(entries, appointment.DiffEntry{Resource: name, Type: "Output", Changes: []string{"added"}})
		}
	}
	for name, o1 := range out1 {
		o2, exists := out2[name]
		if !exists {
			entries = append(entries, appointment.DiffEntry{Resource: name, Type: "Output", Changes: []string{"removed"}})
			continue
		}

		var changes []string
		if !deepEqual(normalize(o1.Value), normalize(o2.Value), opts) {
			changes = append(changes, "Value modified")
		}
		if o1.ExportName() != o2.ExportName() {
			changes = append(changes, fmt.Sprintf("Export changed: %q → %q", o1.ExportName(), o2.ExportName()))
		}
		if o1.Description != o2.Description {
			changes = append(changes, "Description modified")
		}
		if len(changes) > 0 {
			entries = append(entries, appointment.DiffEntry{Resource: name, Type: "Output", Changes: changes})
		}
	}

	return entries
}

// compareValues recursively compares property trees and returns one change
// per differing leaf path. Lists of different length are reported whole.
func compareValues(path string, v1, v2 any, opts Options) []string {
	m1, ok1 := v1.(map[string]any)
	m2, ok2 := v2.(map[string]any)
	if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
		var changes []string
		for key, val2 := range m2 {
			child := joinPath(path, key)
			if val1, exists := m1[key]; exists {
				changes = append(changes, compareValues(child, val1, val2, opts)...)
			} else {
				changes = append(changes, fmt.Sprintf("%s added", child))
			}
		}
		for key := range m1 {
			if _, exists := m2[key]; !exists {
				changes = append(changes, fmt.Sprintf("%s removed", joinPath(path, key)))
			}
		}
		return changes
	}

	l1, ok1 := v1.([]any)
	l2, ok2 := v2.([]any)
	if ok1 && ok2 && len(l1) == len(l2) && !opts.IgnoreOrder {
		var changes []string
		for i := range l1 {
			changes = append(changes, compareValues(joinPath(path, strconv.Itoa(i)), l1[i], l2[i], opts)...)
		}
		return changes
	}

	if deepEqual(v1, v2, opts) {
		return nil
	}
	if path == "" {
		path = "Properties"
	}
	return []string{fmt.Sprintf("%s modified", path)}
}

// isIntrinsic reports whether m is a single-key intrinsic function, which is
// compared as a whole.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || k == "Condition" || (len(k) > 4 && k[:4] == "Fn::")
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts list elements by their JSON encoding so that lists
// with the same elements compare equal.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return encodeKey(result[i]) < encodeKey(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any)
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func encodeKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// normalize converts typed values to their JSON form so an evaluated
// template compares equal to the same template loaded from disk.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func toAny(props map[string]any) any {
	if props == nil {
		return map[string]any{}
	}
	return normalize(props)
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []appointment.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
