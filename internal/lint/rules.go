// Package lint provides lint rules for appointment stack declarations.
//
// The rules parse the Go source of a composition package and flag patterns
// that bypass the typed intrinsics or weaken the stack.
//
// Rules:
//
//	APS001: Use pseudo-parameter constants instead of hardcoded strings
//	APS002: Use intrinsic types instead of raw intrinsic maps
//	APS003: Avoid open CIDR literals
//	APS004: Do not hardcode passwords
//	APS005: Reference logical IDs through declared identifiers
package lint

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/appointment-stack/appointment-stack-go/intrinsics"
)

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		HardcodedPseudoParameter{},
		MapShouldBeIntrinsic{},
		OpenCIDRLiteral{},
		HardcodedPassword{},
		LiteralLogicalName{},
	}
}

// HardcodedPseudoParameter detects hardcoded AWS pseudo-parameter strings.
//
// Detects: "AWS::Region", "AWS::AccountId", "AWS::StackName"
// Suggests: intrinsics.AWS_REGION, intrinsics.AWS_ACCOUNT_ID, etc.
type HardcodedPseudoParameter struct{}

func (r HardcodedPseudoParameter) ID() string { return "APS001" }
func (r HardcodedPseudoParameter) Description() string {
	return "Use pseudo-parameter constants instead of hardcoded strings"
}

// pseudoParams maps pseudo-parameter names to the intrinsics variable
// that references them.
var pseudoParams = map[string]string{
	intrinsics.AWS_REGION.LogicalName:            "AWS_REGION",
	intrinsics.AWS_ACCOUNT_ID.LogicalName:        "AWS_ACCOUNT_ID",
	intrinsics.AWS_STACK_NAME.LogicalName:        "AWS_STACK_NAME",
	intrinsics.AWS_STACK_ID.LogicalName:          "AWS_STACK_ID",
	intrinsics.AWS_PARTITION.LogicalName:         "AWS_PARTITION",
	intrinsics.AWS_URL_SUFFIX.LogicalName:        "AWS_URL_SUFFIX",
	intrinsics.AWS_NO_VALUE.LogicalName:          "AWS_NO_VALUE",
	intrinsics.AWS_NOTIFICATION_ARNS.LogicalName: "AWS_NOTIFICATION_ARNS",
}

func (r HardcodedPseudoParameter) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue

	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok {
			return true
		}
		value, ok := stringValue(lit)
		if !ok {
			return true
		}

		if constant, found := pseudoParams[value]; found {
			issues = append(issues, issueAt(fset, lit, r, SeverityWarning,
				"Use "+constant+" instead of \""+value+"\"", constant))
		}
		return true
	})

	return issues
}

// MapShouldBeIntrinsic detects single-key maps spelling out an intrinsic.
//
// Detects: map[string]any{"Ref": "..."}, Json{"Fn::GetAtt": [...]}
// for the intrinsics the intrinsics package provides.
// Suggests: intrinsics.Ref{...}, intrinsics.GetAtt{...}
type MapShouldBeIntrinsic struct{}

func (r MapShouldBeIntrinsic) ID() string { return "APS002" }
func (r MapShouldBeIntrinsic) Description() string {
	return "Use intrinsic types instead of raw intrinsic maps"
}

// intrinsicKeys maps intrinsic function keys to the intrinsics type that
// renders them.
var intrinsicKeys = map[string]string{
	"Ref":        intrinsicTypeName(intrinsics.Ref{}),
	"Fn::Sub":    intrinsicTypeName(intrinsics.Sub{}),
	"Fn::Join":   intrinsicTypeName(intrinsics.Join{}),
	"Fn::GetAtt": intrinsicTypeName(intrinsics.GetAtt{}),
}

func intrinsicTypeName(v any) string {
	return reflect.TypeOf(v).Name()
}

func (r MapShouldBeIntrinsic) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue

	ast.Inspect(file, func(n ast.Node) bool {
		comp, ok := n.(*ast.CompositeLit)
		if !ok || !isGenericMap(comp.Type) || len(comp.Elts) != 1 {
			return true
		}

		kv, ok := comp.Elts[0].(*ast.KeyValueExpr)
		if !ok {
			return true
		}
		key, ok := stringValue(kv.Key)
		if !ok {
			return true
		}

		if typeName, found := intrinsicKeys[key]; found {
			issues = append(issues, issueAt(fset, comp, r, SeverityWarning,
				"Use intrinsics."+typeName+"{...} instead of a map keyed \""+key+"\"", typeName+"{...}"))
		}
		return true
	})

	return issues
}

// isGenericMap reports whether expr is map[string]any, map[string]interface{}
// or the Json alias.
func isGenericMap(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name == "Json"
	case *ast.SelectorExpr:
		return t.Sel.Name == "Json"
	case *ast.MapType:
		key, ok := t.Key.(*ast.Ident)
		if !ok || key.Name != "string" {
			return false
		}
		switch v := t.Value.(type) {
		case *ast.Ident:
			return v.Name == "any"
		case *ast.InterfaceType:
			return len(v.Methods.List) == 0
		}
	}
	return false
}

// OpenCIDRLiteral detects CIDR literals admitting every address.
//
// Detects: CidrIp: "0.0.0.0/0", CidrIpv6: "::/0"
// Suggests: the VPC CIDR, a configured CIDR, or the named ec2.AnyIPv4
// constant when open access is intended.
type OpenCIDRLiteral struct{}

func (r OpenCIDRLiteral) ID() string { return "APS003" }
func (r OpenCIDRLiteral) Description() string {
	return "Avoid open CIDR literals"
}

func (r OpenCIDRLiteral) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue

	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok {
			return true
		}
		value, ok := stringValue(lit)
		if !ok || (value != "0.0.0.0/0" && value != "::/0") {
			return true
		}

		issues = append(issues, issueAt(fset, lit, r, SeverityWarning,
			fmt.Sprintf("CIDR %s admits every address", value),
			"Restrict to the VPC CIDR, or use ec2.AnyIPv4/ec2.AnyIPv6 to make open access explicit"))
		return true
	})

	return issues
}

// HardcodedPassword detects string literals assigned to password fields.
//
// Detects: MasterUserPassword: "hunter22", "password": "..."
// Suggests: a generated secret, a managed master password, or a NoEcho
// parameter.
type HardcodedPassword struct{}

func (r HardcodedPassword) ID() string { return "APS004" }
func (r HardcodedPassword) Description() string {
	return "Do not hardcode passwords"
}

func (r HardcodedPassword) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue

	ast.Inspect(file, func(n ast.Node) bool {
		kv, ok := n.(*ast.KeyValueExpr)
		if !ok {
			return true
		}

		var key string
		switch k := kv.Key.(type) {
		case *ast.Ident:
			key = k.Name
		default:
			key, _ = stringValue(k)
		}
		if !isPasswordField(key) {
			return true
		}

		value, ok := stringValue(kv.Value)
		if !ok || value == "" || strings.Contains(value, "{{resolve:") {
			return true
		}

		issues = append(issues, issueAt(fset, kv.Value, r, SeverityError,
			fmt.Sprintf("Hardcoded value in password field %s", key),
			"Use a generated secret, ManageMasterUserPassword, or a NoEcho parameter"))
		return true
	})

	return issues
}

func isPasswordField(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "password") || lower == "passwd" || lower == "pwd"
}

// LiteralLogicalName detects Ref and GetAtt literals naming their target
// with a string literal.
//
// Detects: Ref{LogicalName: "AppointmentTopic"}, GetAtt{"QueuePE", "Arn"}
// Suggests: Ref{LogicalName: TopicID}
type LiteralLogicalName struct{}

func (r LiteralLogicalName) ID() string { return "APS005" }
func (r LiteralLogicalName) Description() string {
	return "Reference logical IDs through declared identifiers"
}

func (r LiteralLogicalName) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue

	ast.Inspect(file, func(n ast.Node) bool {
		comp, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		kind := typeName(comp.Type)
		if kind != "Ref" && kind != "GetAtt" {
			return true
		}

		name := logicalNameExpr(comp)
		if name == nil {
			return true
		}
		value, ok := stringValue(name)
		if !ok {
			return true
		}
		if _, pseudo := pseudoParams[value]; pseudo {
			// Reported by APS001.
			return true
		}

		issues = append(issues, issueAt(fset, name, r, SeverityWarning,
			fmt.Sprintf("%s names %q with a string literal", kind, value),
			"Declare the logical ID as a constant and reference it"))
		return true
	})

	return issues
}

func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

// logicalNameExpr returns the LogicalName element of a Ref or GetAtt
// literal, keyed or positional.
func logicalNameExpr(comp *ast.CompositeLit) ast.Expr {
	for i, elt := range comp.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if key, ok := kv.Key.(*ast.Ident); ok && key.Name == "LogicalName" {
				return kv.Value
			}
			continue
		}
		if i == 0 {
			return elt
		}
	}
	return nil
}
