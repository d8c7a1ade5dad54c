// Package graph generates DOT and Mermaid format dependency graphs of the evaluated resources.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	appointment "github.com/appointment-stack/appointment-stack-go"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from evaluated resources.
type Generator struct {
	// IncludeParameters includes parameter references in the graph.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(resources map[string]appointment.DiscoveredResource, parameters map[string]appointment.Parameter, w io.Writer) error {
	graph := g.buildGraph(resources, parameters)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(resources map[string]appointment.DiscoveredResource, parameters map[string]appointment.Parameter) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, parameters, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure from the resources.
func (g *Generator) buildGraph(resources map[string]appointment.DiscoveredResource, parameters map[string]appointment.Parameter) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	// Set default node style
	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	// Set default edge style
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	// Build set of GetAtt references for edge styling
	getAttRefs := g.buildGetAttSet(resources)

	if g.ClusterByType {
		g.addClusteredNodes(graph, resources)
	} else {
		g.addNodes(graph, resources)
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name + "\\n[" + parameters[name].Type + "]")
		}
	}

	for _, name := range sortedKeys(resources) {
		for _, dep := range resources[name].Dependencies {
			_, isResource := resources[dep]
			_, isParam := parameters[dep]
			if isParam && !g.IncludeParameters {
				continue
			}
			if !isResource && !isParam {
				continue
			}

			e := graph.Edge(graph.Node(name), graph.Node(dep))
			if getAttRefs[name+"->"+dep] {
				e.Attr("color", "blue")
			}
		}
	}

	return graph
}

// buildGetAttSet creates a set of edges that are GetAtt references.
func (g *Generator) buildGetAttSet(resources map[string]appointment.DiscoveredResource) map[string]bool {
	getAttRefs := make(map[string]bool)
	for name, res := range resources {
		for _, usage := range res.AttrRefUsages {
			getAttRefs[name+"->"+usage.ResourceName] = true
		}
	}
	return getAttRefs
}

// addNodes adds resource nodes without clustering.
func (g *Generator) addNodes(graph *dot.Graph, resources map[string]appointment.DiscoveredResource) {
	for _, name := range sortedKeys(resources) {
		graph.Node(name).Label(nodeLabel(name, resources[name]))
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources map[string]appointment.DiscoveredResource) {
	serviceResources := make(map[string][]string)
	for _, name := range sortedKeys(resources) {
		service := extractService(resources[name].CFType)
		serviceResources[service] = append(serviceResources[service], name)
	}

	// Create clusters for each service with multiple resources
	for _, service := range sortedKeys(serviceResources) {
		resNames := serviceResources[service]
		if len(resNames) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, name := range resNames {
				cluster.Node(name).Label(nodeLabel(name, resources[name]))
			}
		} else {
			// Single resource, no cluster needed
			for _, name := range resNames {
				graph.Node(name).Label(nodeLabel(name, resources[name]))
			}
		}
	}
}

func nodeLabel(name string, res appointment.DiscoveredResource) string {
	return name + "\\n[" + res.CFType + "]"
}

// extractService extracts the AWS service name from a CloudFormation type.
// e.g., "AWS::SQS::Queue" -> "SQS"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
