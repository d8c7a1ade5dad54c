// Package template builds CloudFormation templates from typed resource values.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/serialize"
	"github.com/appointment-stack/appointment-stack-go/intrinsics"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

var (
	// ErrUnknownReference is returned when a Ref or GetAtt names neither a
	// resource, a parameter nor a pseudo parameter.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrCircularDependency is returned when resources reference each other in a cycle.
	ErrCircularDependency = errors.New("circular dependency")
)

// attributeLister is implemented by resource types that expose GetAtt attributes.
type attributeLister interface {
	Attributes() []string
}

type resourceEntry struct {
	value               appointment.Resource
	deletionPolicy      string
	updateReplacePolicy string
	dependsOn           []string
}

// ResourceOption customizes a registered resource.
type ResourceOption func(*resourceEntry)

// WithRemovalPolicy sets both DeletionPolicy and UpdateReplacePolicy.
func WithRemovalPolicy(policy string) ResourceOption {
	return func(e *resourceEntry) {
		e.deletionPolicy = policy
		e.updateReplacePolicy = policy
	}
}

// WithDependsOn adds explicit dependencies.
func WithDependsOn(names ...string) ResourceOption {
	return func(e *resourceEntry) { e.dependsOn = append(e.dependsOn, names...) }
}

// Builder constructs a CloudFormation template from registered resources,
// parameters and outputs.
type Builder struct {
	description string
	tags        map[string]string
	resources   map[string]*resourceEntry
	parameters  map[string]appointment.Parameter
	outputs     map[string]appointment.Output
	logger      *zap.Logger

	// populated by Build
	discovered map[string]appointment.DiscoveredResource
	order      []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithDescription sets the template description.
func WithDescription(description string) Option {
	return func(b *Builder) { b.description = description }
}

// WithTags sets stack-wide tags merged into every taggable resource.
func WithTags(tags map[string]string) Option {
	return func(b *Builder) {
		for k, v := range tags {
			b.tags[k] = v
		}
	}
}

// WithLogger sets the logger used while building.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates an empty template builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		tags:       make(map[string]string),
		resources:  make(map[string]*resourceEntry),
		parameters: make(map[string]appointment.Parameter),
		outputs:    make(map[string]appointment.Output),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetResource registers a resource under a logical ID, replacing any
// previous registration.
func (b *Builder) SetResource(name string, value appointment.Resource, opts ...ResourceOption) {
	entry := &resourceEntry{value: value}
	for _, opt := range opts {
		opt(entry)
	}
	b.resources[name] = entry
}

// SetParameter registers a template parameter.
func (b *Builder) SetParameter(name string, param appointment.Parameter) {
	b.parameters[name] = param
}

// SetOutput registers a template output.
func (b *Builder) SetOutput(name string, output appointment.Output) {
	b.outputs[name] = output
}

// Resource returns the registered value for a logical ID.
func (b *Builder) Resource(name string) (appointment.Resource, bool) {
	e, ok := b.resources[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Build serializes every registered value and returns the template.
// All reference errors are reported together.
func (b *Builder) Build() (*appointment.Template, error) {
	template := &appointment.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]appointment.ResourceDef, len(b.resources)),
	}

	discovered := make(map[string]appointment.DiscoveredResource, len(b.resources))
	var errs []error

	for _, name := range sortedKeys(b.resources) {
		entry := b.resources[name]

		props, err := serialize.Properties(entry.value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		props = b.mergeTags(entry.value, props)

		res := appointment.DiscoveredResource{
			Name:   name,
			Type:   goTypeName(entry.value),
			CFType: entry.value.ResourceType(),
		}

		deps := make(map[string]bool)
		for _, ref := range collectRefs("", props) {
			if err := b.checkRef(ref); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", name, ref.Path, err))
				continue
			}
			if _, isParam := b.parameters[ref.Name]; isParam || intrinsics.PseudoParameters[ref.Name] {
				if isParam {
					deps[ref.Name] = true
				}
				continue
			}
			deps[ref.Name] = true
			if ref.Attribute != "" {
				res.AttrRefUsages = append(res.AttrRefUsages, appointment.AttrRefUsage{
					ResourceName: ref.Name,
					Attribute:    ref.Attribute,
					FieldPath:    ref.Path,
				})
			}
		}
		for _, dep := range entry.dependsOn {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("%s.DependsOn: %w: %s", name, ErrUnknownReference, dep))
				continue
			}
			deps[dep] = true
		}
		res.Dependencies = sortedKeys(deps)
		discovered[name] = res

		template.Resources[name] = appointment.ResourceDef{
			Type:                entry.value.ResourceType(),
			Properties:          props,
			DependsOn:           sortedUnique(entry.dependsOn),
			DeletionPolicy:      entry.deletionPolicy,
			UpdateReplacePolicy: entry.updateReplacePolicy,
		}
	}

	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]appointment.Parameter, len(b.parameters))
		for name, p := range b.parameters {
			template.Parameters[name] = p
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]appointment.Output, len(b.outputs))
		for _, name := range sortedKeys(b.outputs) {
			out := b.outputs[name]
			value, err := serialize.Normalize(out.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			for _, ref := range collectRefs("Value", value) {
				if err := b.checkRef(ref); err != nil {
					errs = append(errs, fmt.Errorf("output %s: %w", name, err))
				}
			}
			out.Value = value
			template.Outputs[name] = out
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	b.discovered = discovered
	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}
	b.order = order

	b.logger.Debug("template built",
		zap.Int("resources", len(template.Resources)),
		zap.Int("parameters", len(template.Parameters)),
		zap.Int("outputs", len(template.Outputs)),
		zap.Strings("order", order))

	return template, nil
}

// Discovered returns the resource graph of the last successful Build.
func (b *Builder) Discovered() map[string]appointment.DiscoveredResource {
	return b.discovered
}

// Order returns the logical IDs of the last successful Build in dependency order.
func (b *Builder) Order() []string {
	return b.order
}

// checkRef verifies that a reference resolves to a declared name and, for
// GetAtt, to an attribute the target type exposes.
func (b *Builder) checkRef(ref reference) error {
	if intrinsics.PseudoParameters[ref.Name] {
		return nil
	}
	if _, ok := b.parameters[ref.Name]; ok {
		if ref.Attribute != "" {
			return fmt.Errorf("%w: GetAtt on parameter %s", ErrUnknownReference, ref.Name)
		}
		return nil
	}
	entry, ok := b.resources[ref.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, ref.Name)
	}
	if ref.Attribute == "" {
		return nil
	}
	lister, ok := entry.value.(attributeLister)
	if !ok {
		return fmt.Errorf("%w: %s has no attributes (wanted %s)", ErrUnknownReference, ref.Name, ref.Attribute)
	}
	for _, attr := range lister.Attributes() {
		if attr == ref.Attribute {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownReference, ref.Name, ref.Attribute)
}

// mergeTags adds stack-wide tags to resources whose type has a Tags field.
// Tags already set on the resource win.
func (b *Builder) mergeTags(value any, props map[string]any) map[string]any {
	if len(b.tags) == 0 {
		return props
	}
	v := reflect.Indirect(reflect.ValueOf(value))
	if v.Kind() != reflect.Struct {
		return props
	}
	if _, ok := v.Type().FieldByName("Tags"); !ok {
		return props
	}

	existing, _ := props["Tags"].([]any)
	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		if m, ok := t.(map[string]any); ok {
			if k, ok := m["Key"].(string); ok {
				present[k] = true
			}
		}
	}

	merged := append([]any(nil), existing...)
	for _, k := range sortedKeys(b.tags) {
		if present[k] {
			continue
		}
		merged = append(merged, map[string]any{"Key": k, "Value": b.tags[k]})
	}
	if len(merged) == 0 {
		return props
	}
	if props == nil {
		props = make(map[string]any)
	}
	props["Tags"] = merged
	return props
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.discovered {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range b.discovered {
		for _, dep := range res.Dependencies {
			if _, exists := b.discovered[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.discovered) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.discovered[node].Dependencies {
			if _, exists := b.discovered[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	for _, name := range sortedKeys(b.discovered) {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return ErrCircularDependency
	}
	return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " -> "))
}

// ToJSON serializes the template to indented JSON.
func ToJSON(t *appointment.Template) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ToYAML serializes the template to YAML.
func ToYAML(t *appointment.Template) ([]byte, error) {
	// Round-trip through JSON so intrinsics and property maps are plain values.
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}

	return yaml.Marshal(orderedTemplate(generic))
}

// sectionOrder is the conventional order of template sections.
var sectionOrder = []string{"AWSTemplateFormatVersion", "Description", "Parameters", "Resources", "Outputs"}

// orderedTemplate renders the top-level sections in conventional order;
// nested maps are sorted by key by yaml.v3.
func orderedTemplate(generic map[string]any) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range sectionOrder {
		value, ok := generic[key]
		if !ok {
			continue
		}
		var valueNode yaml.Node
		// Encode cannot fail for values decoded from JSON.
		_ = valueNode.Encode(value)
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&valueNode)
	}
	return root
}

// Load reads a template from a JSON or YAML file.
func Load(path string) (*appointment.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a template. JSON is tried first unless ext names YAML.
func Parse(data []byte, ext string) (*appointment.Template, error) {
	var t appointment.Template
	ext = strings.ToLower(ext)
	if ext != ".yaml" && ext != ".yml" {
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	// Normalize YAML through JSON so numbers and maps match JSON decoding.
	jsonData, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if err := json.Unmarshal(jsonData, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &t, nil
}

func goTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	pkg := t.PkgPath()
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	if pkg == "" {
		return t.Name()
	}
	return pkg + "." + t.Name()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedUnique(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	return sortedKeys(seen)
}
