// Package topology checks the structure of an appointment stack template:
// the table keys, the notification fan-out, the event routing, the
// database ingress, the exported outputs and evaluation idempotence.
package topology

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/differ"
)

// Check names.
const (
	CheckTable       = "TABLE"
	CheckFanout      = "FANOUT"
	CheckRouting     = "ROUTING"
	CheckIngress     = "INGRESS"
	CheckOutputs     = "OUTPUTS"
	CheckIdempotence = "IDEMPOTENCE"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Options are the expectations the template is checked against.
type Options struct {
	// IndexKey is the partition key of the single secondary index.
	IndexKey string
	// Subscribers is the number of queues subscribed to the topic.
	Subscribers int
	// Source is the event source the routing rule must match.
	Source string
	// ConfirmOpenIngress downgrades open database ingress to a warning.
	ConfirmOpenIngress bool
	// ExpectedExports lists the export names that must be present.
	ExpectedExports []string
}

func (o Options) withDefaults() Options {
	if o.IndexKey == "" {
		o.IndexKey = "insuredId"
	}
	if o.Subscribers == 0 {
		o.Subscribers = 2
	}
	if o.Source == "" {
		o.Source = "appointment.handler"
	}
	return o
}

// Check runs every structural check on the template.
func Check(t *appointment.Template, opts Options) []appointment.Finding {
	opts = opts.withDefaults()

	var findings []appointment.Finding
	findings = append(findings, Table(t, opts)...)
	findings = append(findings, Fanout(t, opts)...)
	findings = append(findings, Routing(t, opts)...)
	findings = append(findings, Ingress(t, opts)...)
	findings = append(findings, Outputs(t, opts)...)
	return findings
}

// Table checks that every table has exactly one partition key and exactly
// one secondary index keyed on the index key projecting all attributes.
func Table(t *appointment.Template, opts Options) []appointment.Finding {
	opts = opts.withDefaults()
	tables := resourcesOfType(t, "AWS::DynamoDB::Table")
	if len(tables) == 0 {
		return []appointment.Finding{errorf(CheckTable, "", "no AWS::DynamoDB::Table declared")}
	}

	var findings []appointment.Finding
	for _, name := range tables {
		props := t.Resources[name].Properties

		if hashKeys := keysOfType(props["KeySchema"], "HASH"); len(hashKeys) != 1 {
			findings = append(findings, errorf(CheckTable, name, "table declares %d partition keys, want exactly 1", len(hashKeys)))
		}

		indexes, _ := props["GlobalSecondaryIndexes"].([]any)
		if len(indexes) != 1 {
			findings = append(findings, errorf(CheckTable, name, "table declares %d global secondary indexes, want exactly 1", len(indexes)))
			continue
		}
		index, _ := indexes[0].(map[string]any)
		hashKeys := keysOfType(index["KeySchema"], "HASH")
		if len(hashKeys) != 1 || hashKeys[0] != opts.IndexKey {
			findings = append(findings, errorf(CheckTable, name, "index %v is keyed on %v, want %s", index["IndexName"], hashKeys, opts.IndexKey))
		}
		projection, _ := index["Projection"].(map[string]any)
		if projection["ProjectionType"] != "ALL" {
			findings = append(findings, errorf(CheckTable, name, "index %v projects %v, want ALL", index["IndexName"], projection["ProjectionType"]))
		}
	}
	return findings
}

// Fanout checks that the topic has the expected number of SQS
// subscriptions, each delivering to a distinct queue.
func Fanout(t *appointment.Template, opts Options) []appointment.Finding {
	opts = opts.withDefaults()
	topics := resourcesOfType(t, "AWS::SNS::Topic")
	if len(topics) != 1 {
		return []appointment.Finding{errorf(CheckFanout, "", "%d topics declared, want exactly 1", len(topics))}
	}
	topic := topics[0]

	var findings []appointment.Finding
	endpoints := make(map[string]string)
	for _, name := range resourcesOfType(t, "AWS::SNS::Subscription") {
		props := t.Resources[name].Properties
		if refName(props["TopicArn"]) != topic {
			continue
		}
		if props["Protocol"] != "sqs" {
			findings = append(findings, errorf(CheckFanout, name, "subscription protocol is %v, want sqs", props["Protocol"]))
			continue
		}
		queue, attr := getAttTarget(props["Endpoint"])
		if attr != "Arn" || t.Resources[queue].Type != "AWS::SQS::Queue" {
			findings = append(findings, errorf(CheckFanout, name, "subscription endpoint is not the ARN of a declared queue"))
			continue
		}
		if other, dup := endpoints[queue]; dup {
			findings = append(findings, errorf(CheckFanout, name, "queue %s is already subscribed by %s", queue, other))
			continue
		}
		endpoints[queue] = name
	}

	if len(endpoints) != opts.Subscribers {
		findings = append(findings, errorf(CheckFanout, topic, "%d queues subscribed to the topic, want %d", len(endpoints), opts.Subscribers))
	}
	return findings
}

// Routing checks that every rule matches exactly the configured source and
// targets exactly one queue.
func Routing(t *appointment.Template, opts Options) []appointment.Finding {
	opts = opts.withDefaults()
	rules := resourcesOfType(t, "AWS::Events::Rule")
	if len(rules) == 0 {
		return []appointment.Finding{errorf(CheckRouting, "", "no AWS::Events::Rule declared")}
	}

	var findings []appointment.Finding
	for _, name := range rules {
		props := t.Resources[name].Properties

		pattern := props["EventPattern"]
		if s, ok := pattern.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				pattern = decoded
			}
		}
		patternMap, _ := pattern.(map[string]any)
		sources, _ := patternMap["source"].([]any)
		if len(sources) != 1 || sources[0] != opts.Source {
			findings = append(findings, errorf(CheckRouting, name, "rule matches sources %v, want [%s]", sources, opts.Source))
		}

		targets, _ := props["Targets"].([]any)
		if len(targets) != 1 {
			findings = append(findings, errorf(CheckRouting, name, "rule has %d targets, want exactly 1", len(targets)))
			continue
		}
		target, _ := targets[0].(map[string]any)
		queue, attr := getAttTarget(target["Arn"])
		if attr != "Arn" || t.Resources[queue].Type != "AWS::SQS::Queue" {
			findings = append(findings, errorf(CheckRouting, name, "rule target is not the ARN of a declared queue"))
		}
	}
	return findings
}

// Ingress reports database instances that are not publicly accessible but
// whose security groups admit any address on the database port.
func Ingress(t *appointment.Template, opts Options) []appointment.Finding {
	severity := SeverityError
	if opts.ConfirmOpenIngress {
		severity = SeverityWarning
	}

	var findings []appointment.Finding
	for _, name := range resourcesOfType(t, "AWS::RDS::DBInstance") {
		props := t.Resources[name].Properties
		if public, _ := toBool(props["PubliclyAccessible"]); public {
			continue
		}
		port, ok := toInt(props["Port"])
		if !ok {
			port = defaultPort(props["Engine"])
		}

		groups, _ := props["VPCSecurityGroups"].([]any)
		for _, g := range groups {
			group := refName(g)
			if group == "" {
				group, _ = getAttTarget(g)
			}
			for _, cidr := range openRules(t, group, port) {
				findings = append(findings, appointment.Finding{
					Check:    CheckIngress,
					Severity: severity,
					Resource: name,
					Message: fmt.Sprintf("instance is not publicly accessible but %s admits %s on port %d",
						group, cidr, port),
				})
			}
		}
	}
	return findings
}

// openRules returns the unrestricted CIDRs admitted on port by the group,
// from its inline rules and from standalone ingress resources.
func openRules(t *appointment.Template, group string, port int) []string {
	var rules []any
	if def, ok := t.Resources[group]; ok {
		inline, _ := def.Properties["SecurityGroupIngress"].([]any)
		rules = append(rules, inline...)
	}
	for _, name := range resourcesOfType(t, "AWS::EC2::SecurityGroupIngress") {
		props := t.Resources[name].Properties
		target, _ := getAttTarget(props["GroupId"])
		if target == group || refName(props["GroupId"]) == group {
			rules = append(rules, any(props))
		}
	}

	var open []string
	for _, r := range rules {
		rule, _ := r.(map[string]any)
		if !coversPort(rule, port) {
			continue
		}
		if rule["CidrIp"] == "0.0.0.0/0" {
			open = append(open, "0.0.0.0/0")
		}
		if rule["CidrIpv6"] == "::/0" {
			open = append(open, "::/0")
		}
	}
	return open
}

func coversPort(rule map[string]any, port int) bool {
	protocol := fmt.Sprint(rule["IpProtocol"])
	if protocol == "-1" || protocol == "all" {
		return true
	}
	if protocol != "tcp" && protocol != "6" {
		return false
	}
	from, okFrom := toInt(rule["FromPort"])
	to, okTo := toInt(rule["ToPort"])
	if !okFrom || !okTo {
		return false
	}
	return from <= port && port <= to
}

// Outputs checks that every expected export is present with a non-empty
// value, and reports outputs sharing a value.
func Outputs(t *appointment.Template, opts Options) []appointment.Finding {
	var findings []appointment.Finding

	exports := make(map[string]string) // export name -> output name
	for name, out := range t.Outputs {
		if e := out.ExportName(); e != "" {
			exports[e] = name
		}
	}

	for _, export := range opts.ExpectedExports {
		name, ok := exports[export]
		if !ok {
			findings = append(findings, errorf(CheckOutputs, export, "export %s is missing", export))
			continue
		}
		if isEmpty(t.Outputs[name].Value) {
			findings = append(findings, errorf(CheckOutputs, name, "export %s has an empty value", export))
		}
	}

	byValue := make(map[string][]string)
	for name, out := range t.Outputs {
		data, err := json.Marshal(out.Value)
		if err != nil {
			continue
		}
		byValue[string(data)] = append(byValue[string(data)], name)
	}
	for value, names := range byValue {
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		findings = append(findings, appointment.Finding{
			Check:    CheckOutputs,
			Severity: SeverityInfo,
			Resource: names[0],
			Message:  fmt.Sprintf("outputs %s share the value %s", strings.Join(names, ", "), value),
		})
	}

	sortFindings(findings)
	return findings
}

// Idempotence evaluates the stack twice and reports any difference.
func Idempotence(evaluate func() (*appointment.Template, error)) []appointment.Finding {
	first, err := evaluate()
	if err != nil {
		return []appointment.Finding{errorf(CheckIdempotence, "", "first evaluation failed: %v", err)}
	}
	second, err := evaluate()
	if err != nil {
		return []appointment.Finding{errorf(CheckIdempotence, "", "second evaluation failed: %v", err)}
	}

	result, err := differ.Compare(first, second, differ.Options{})
	if err != nil {
		return []appointment.Finding{errorf(CheckIdempotence, "", "%v", err)}
	}
	if result.Empty() {
		return nil
	}

	var findings []appointment.Finding
	for _, group := range [][]appointment.DiffEntry{result.Diff.Added, result.Diff.Removed, result.Diff.Modified, result.Diff.Outputs} {
		for _, entry := range group {
			findings = append(findings, errorf(CheckIdempotence, entry.Resource,
				"re-evaluation changed %s %v", entry.Resource, entry.Changes))
		}
	}
	return findings
}

// Result summarizes findings as a validate result. Errors fail the result.
func Result(resources int, findings []appointment.Finding) appointment.ValidateResult {
	result := appointment.ValidateResult{
		Success:   true,
		Resources: resources,
		Findings:  findings,
	}
	for _, f := range findings {
		line := f.Check + ": " + f.Message
		if f.Resource != "" {
			line = f.Check + ": " + f.Resource + ": " + f.Message
		}
		switch f.Severity {
		case SeverityError:
			result.Success = false
			result.Errors = append(result.Errors, line)
		case SeverityWarning:
			result.Warnings = append(result.Warnings, line)
		}
	}
	return result
}

func errorf(check, resource, format string, args ...any) appointment.Finding {
	return appointment.Finding{
		Check:    check,
		Severity: SeverityError,
		Resource: resource,
		Message:  fmt.Sprintf(format, args...),
	}
}

func sortFindings(findings []appointment.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity < findings[j].Severity
		}
		return findings[i].Resource < findings[j].Resource
	})
}

func resourcesOfType(t *appointment.Template, cfType string) []string {
	var names []string
	for name, def := range t.Resources {
		if def.Type == cfType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// keysOfType returns the attribute names of a key schema with the key type.
func keysOfType(schema any, keyType string) []string {
	elems, _ := schema.([]any)
	var names []string
	for _, e := range elems {
		m, _ := e.(map[string]any)
		if m["KeyType"] == keyType {
			names = append(names, fmt.Sprint(m["AttributeName"]))
		}
	}
	return names
}

func refName(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := m["Ref"].(string)
	return name
}

func getAttTarget(v any) (resource, attribute string) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", ""
	}
	switch g := m["Fn::GetAtt"].(type) {
	case []any:
		if len(g) == 2 {
			resource, _ = g[0].(string)
			attribute, _ = g[1].(string)
		}
	case string:
		resource, attribute, _ = strings.Cut(g, ".")
	}
	return resource, attribute
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	return false, false
}

func defaultPort(engine any) int {
	switch fmt.Sprint(engine) {
	case "postgres":
		return 5432
	case "sqlserver-ex", "sqlserver-se", "sqlserver-ee", "sqlserver-web":
		return 1433
	case "oracle-ee", "oracle-se2":
		return 1521
	}
	return 3306
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}
