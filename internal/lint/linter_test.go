package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanSource = `package stack

const TopicID = "AppointmentTopic"

var Subscription = sns.Subscription{
	Protocol: sns.ProtocolSQS,
	TopicArn: Ref{LogicalName: TopicID},
}
`

const dirtySource = `package stack

var Ingress = ec2.SecurityGroup_Ingress{CidrIp: "0.0.0.0/0"}

var DB = rds.DBInstance{MasterUserPassword: "hunter2hunter2"}
`

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestLintFile_Clean(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clean.go", cleanSource)

	result, err := LintFile(path, Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Issues)
}

func TestLintFile_WithIssues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dirty.go", dirtySource)

	result, err := LintFile(path, Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "APS003", result.Issues[0].Rule)
	assert.Equal(t, "APS004", result.Issues[1].Rule)
}

func TestLintFile_WarningsOnlySucceed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "open.go",
		"package stack\n\nvar Ingress = ec2.SecurityGroup_Ingress{CidrIp: \"0.0.0.0/0\"}\n")

	result, err := LintFile(path, Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Issues, 1)
}

func TestLintFile_Errors(t *testing.T) {
	_, err := LintFile(filepath.Join(t.TempDir(), "missing.go"), Options{})
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "broken.go", "package stack\n\nvar = \n")
	_, err = LintFile(path, Options{})
	assert.Error(t, err)
}

func TestLintPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", cleanSource)
	writeFile(t, dir, "dirty.go", dirtySource)
	writeFile(t, dir, "dirty_test.go", dirtySource)
	writeFile(t, dir, "README.md", "not go")

	result, err := LintPackage(dir, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Issues, 2)

	result, err = LintPackage(dir, Options{IncludeTests: true})
	require.NoError(t, err)
	assert.Len(t, result.Issues, 4)

	_, err = LintPackage(filepath.Join(dir, "missing"), Options{})
	assert.Error(t, err)
}

func TestLintPackage_Recursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stack"), "dirty.go", dirtySource)
	writeFile(t, filepath.Join(root, "stack", "testdata"), "fixture.go", dirtySource)
	writeFile(t, filepath.Join(root, "vendor", "x"), "dep.go", dirtySource)
	writeFile(t, filepath.Join(root, "_examples"), "ex.go", dirtySource)
	writeFile(t, filepath.Join(root, "broken"), "broken.go", "package broken\n\nfunc (\n")

	result, err := LintPackage(root+"/...", Options{})
	require.NoError(t, err)
	assert.Len(t, result.Issues, 2)
}

func TestGetRules(t *testing.T) {
	assert.Len(t, getRules(Options{}), 5)

	rules := getRules(Options{EnabledRules: []string{"APS001", "APS005", "APS999"}})
	require.Len(t, rules, 2)
	assert.Equal(t, "APS001", rules[0].ID())
	assert.Equal(t, "APS005", rules[1].ID())
}

func TestLintPackage_RulesFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dirty.go", dirtySource)

	result, err := LintPackage(dir, Options{EnabledRules: []string{"APS004"}})
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "APS004", result.Issues[0].Rule)
}
