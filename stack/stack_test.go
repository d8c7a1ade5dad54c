package stack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
)

func buildWith(t *testing.T, modify func(*config.Config), network *lookup.Network) *appointment.Template {
	t.Helper()
	cfg := config.Defaults()
	if modify != nil {
		modify(&cfg)
	}
	tmpl, _, err := Build(Props{Config: cfg, Network: network, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return tmpl
}

func ref(name string) map[string]any {
	return map[string]any{"Ref": name}
}

func getAtt(name, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{name, attr}}
}

func TestBuild_DefaultResources(t *testing.T) {
	tmpl := buildWith(t, nil, nil)

	want := map[string]string{
		TableID:             "AWS::DynamoDB::Table",
		TopicID:             "AWS::SNS::Topic",
		QueuePEID:           "AWS::SQS::Queue",
		QueueCLID:           "AWS::SQS::Queue",
		QueuePESubID:        "AWS::SNS::Subscription",
		QueueCLSubID:        "AWS::SNS::Subscription",
		QueuePEPolicyID:     "AWS::SQS::QueuePolicy",
		QueueCLPolicyID:     "AWS::SQS::QueuePolicy",
		EventBusID:          "AWS::Events::EventBus",
		RuleID:              "AWS::Events::Rule",
		BackupQueueID:       "AWS::SQS::Queue",
		BackupQueuePolicyID: "AWS::SQS::QueuePolicy",
		SecurityGroupID:     "AWS::EC2::SecurityGroup",
		DBSubnetGroupID:     "AWS::RDS::DBSubnetGroup",
		DBSecretID:          "AWS::SecretsManager::Secret",
		DBSecretAttachID:    "AWS::SecretsManager::SecretTargetAttachment",
		DBInstanceID:        "AWS::RDS::DBInstance",
	}

	got := make(map[string]string, len(tmpl.Resources))
	for name, def := range tmpl.Resources {
		got[name] = def.Type
	}
	assert.Equal(t, want, got)
	assert.Equal(t, template.FormatVersion, tmpl.AWSTemplateFormatVersion)
}

func TestBuild_Table(t *testing.T) {
	tmpl := buildWith(t, nil, nil)
	table := tmpl.Resources[TableID]

	assert.Equal(t, "Retain", table.DeletionPolicy)
	assert.Equal(t, "Retain", table.UpdateReplacePolicy)
	assert.Equal(t, "Appointments", table.Properties["TableName"])
	assert.Equal(t, "PAY_PER_REQUEST", table.Properties["BillingMode"])
	assert.Equal(t, []any{
		map[string]any{"AttributeName": "appointmentId", "KeyType": "HASH"},
	}, table.Properties["KeySchema"])

	indexes := table.Properties["GlobalSecondaryIndexes"].([]any)
	require.Len(t, indexes, 1)
	index := indexes[0].(map[string]any)
	assert.Equal(t, InsuredIDIndex, index["IndexName"])
	assert.Equal(t, map[string]any{"ProjectionType": "ALL"}, index["Projection"])
}

func TestBuild_Fanout(t *testing.T) {
	tmpl := buildWith(t, nil, nil)

	for _, q := range fanoutQueues {
		assert.Equal(t, "Delete", tmpl.Resources[q.queue].DeletionPolicy)

		sub := tmpl.Resources[q.subscription]
		assert.Equal(t, "sqs", sub.Properties["Protocol"])
		assert.Equal(t, ref(TopicID), sub.Properties["TopicArn"])
		assert.Equal(t, getAtt(q.queue, "Arn"), sub.Properties["Endpoint"])
		assert.Equal(t, []string{q.policy}, sub.DependsOn)

		policy := tmpl.Resources[q.policy]
		assert.Equal(t, []any{ref(q.queue)}, policy.Properties["Queues"])

		doc := policy.Properties["PolicyDocument"].(map[string]any)
		statements := doc["Statement"].([]any)
		require.Len(t, statements, 1)
		statement := statements[0].(map[string]any)
		assert.Equal(t, "sqs:SendMessage", statement["Action"])
		assert.Equal(t, map[string]any{"Service": "sns.amazonaws.com"}, statement["Principal"])
		assert.Equal(t, map[string]any{
			"ArnEquals": map[string]any{"aws:SourceArn": ref(TopicID)},
		}, statement["Condition"])
	}
}

func TestBuild_EventRouting(t *testing.T) {
	tmpl := buildWith(t, func(c *config.Config) {
		c.Events.BusName = "ClinicEvents"
		c.Events.Source = "appointment.scheduler"
	}, nil)

	assert.Equal(t, "ClinicEvents", tmpl.Resources[EventBusID].Properties["Name"])

	rule := tmpl.Resources[RuleID].Properties
	assert.Equal(t, ref(EventBusID), rule["EventBusName"])
	assert.Equal(t, map[string]any{"source": []any{"appointment.scheduler"}}, rule["EventPattern"])
	assert.Equal(t, []any{
		map[string]any{"Id": RuleTargetID, "Arn": getAtt(BackupQueueID, "Arn")},
	}, rule["Targets"])

	policy := tmpl.Resources[BackupQueuePolicyID].Properties["PolicyDocument"].(map[string]any)
	statement := policy["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"Service": "events.amazonaws.com"}, statement["Principal"])
	assert.Equal(t, map[string]any{
		"ArnEquals": map[string]any{"aws:SourceArn": getAtt(RuleID, "Arn")},
	}, statement["Condition"])
}

func TestBuild_NetworkModes(t *testing.T) {
	t.Run("parameter", func(t *testing.T) {
		tmpl := buildWith(t, nil, nil)

		require.Contains(t, tmpl.Parameters, VpcIDParamID)
		require.Contains(t, tmpl.Parameters, SubnetIDsParamID)
		assert.Equal(t, "List<AWS::EC2::Subnet::Id>", tmpl.Parameters[SubnetIDsParamID].Type)
		assert.Equal(t, "172.31.0.0/16", tmpl.Parameters[VpcCIDRParamID].Default)

		assert.Equal(t, ref(VpcIDParamID), tmpl.Resources[SecurityGroupID].Properties["VpcId"])
		assert.Equal(t, ref(SubnetIDsParamID), tmpl.Resources[DBSubnetGroupID].Properties["SubnetIds"])
	})

	t.Run("static", func(t *testing.T) {
		tmpl := buildWith(t, func(c *config.Config) {
			c.Network.Mode = config.NetworkStatic
			c.Network.VpcID = "vpc-0abc"
			c.Network.SubnetIDs = []string{"subnet-a", "subnet-b"}
			c.Network.VpcCIDR = "10.0.0.0/16"
		}, nil)

		assert.Empty(t, tmpl.Parameters)
		assert.Equal(t, "vpc-0abc", tmpl.Resources[SecurityGroupID].Properties["VpcId"])
		assert.Equal(t, []any{"subnet-a", "subnet-b"}, tmpl.Resources[DBSubnetGroupID].Properties["SubnetIds"])
		assert.Equal(t, "10.0.0.0/16", ingressRule(t, tmpl)["CidrIp"])
	})

	t.Run("lookup", func(t *testing.T) {
		network := &lookup.Network{
			VpcID:     "vpc-default",
			VpcCIDR:   "172.31.0.0/16",
			SubnetIDs: []string{"subnet-1a", "subnet-1b", "subnet-1c"},
		}
		tmpl := buildWith(t, func(c *config.Config) { c.Network.Mode = config.NetworkLookup }, network)

		assert.Empty(t, tmpl.Parameters)
		assert.Equal(t, "vpc-default", tmpl.Resources[SecurityGroupID].Properties["VpcId"])
		assert.Len(t, tmpl.Resources[DBSubnetGroupID].Properties["SubnetIds"], 3)
	})

	t.Run("lookup without network", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Network.Mode = config.NetworkLookup
		_, _, err := Build(Props{Config: cfg})
		assert.ErrorIs(t, err, ErrMissingNetwork)
	})
}

func ingressRule(t *testing.T, tmpl *appointment.Template) map[string]any {
	t.Helper()
	rules := tmpl.Resources[SecurityGroupID].Properties["SecurityGroupIngress"].([]any)
	require.Len(t, rules, 1)
	return rules[0].(map[string]any)
}

func TestBuild_IngressSource(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   any
	}{
		{
			name: "vpc cidr by default",
			want: ref(VpcCIDRParamID),
		},
		{
			name:   "configured cidr",
			modify: func(c *config.Config) { c.Database.IngressCIDR = "10.20.0.0/16" },
			want:   "10.20.0.0/16",
		},
		{
			name: "public ingress wins over configured cidr",
			modify: func(c *config.Config) {
				c.Database.IngressCIDR = "10.20.0.0/16"
				c.Database.AllowPublicIngress = true
			},
			want: "0.0.0.0/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := ingressRule(t, buildWith(t, tt.modify, nil))
			assert.Equal(t, tt.want, rule["CidrIp"])
			assert.Equal(t, "tcp", rule["IpProtocol"])
			assert.EqualValues(t, 3306, rule["FromPort"])
			assert.EqualValues(t, 3306, rule["ToPort"])
		})
	}
}

func TestBuild_DatabaseInstance(t *testing.T) {
	tmpl := buildWith(t, nil, nil)
	db := tmpl.Resources[DBInstanceID]

	assert.Equal(t, "Delete", db.DeletionPolicy)
	assert.Equal(t, "mysql", db.Properties["Engine"])
	assert.Equal(t, "8.0", db.Properties["EngineVersion"])
	assert.Equal(t, "db.t3.micro", db.Properties["DBInstanceClass"])
	assert.Equal(t, "appointment_db", db.Properties["DBName"])
	assert.Equal(t, "3306", db.Properties["Port"])
	assert.Equal(t, "20", db.Properties["AllocatedStorage"])
	assert.EqualValues(t, 100, db.Properties["MaxAllocatedStorage"])
	assert.Equal(t, ref(DBSubnetGroupID), db.Properties["DBSubnetGroupName"])
	assert.Equal(t, []any{getAtt(SecurityGroupID, "GroupId")}, db.Properties["VPCSecurityGroups"])

	// Explicit false keeps RDS from defaulting the instance to public.
	assert.Equal(t, false, db.Properties["PubliclyAccessible"])
	assert.Equal(t, false, db.Properties["MultiAZ"])

	tmpl = buildWith(t, func(c *config.Config) {
		c.Database.PubliclyAccessible = true
		c.Database.MultiAZ = true
	}, nil)
	db = tmpl.Resources[DBInstanceID]
	assert.Equal(t, true, db.Properties["PubliclyAccessible"])
	assert.Equal(t, true, db.Properties["MultiAZ"])
}

func TestBuild_CredentialModes(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		tmpl := buildWith(t, nil, nil)

		secret := tmpl.Resources[DBSecretID].Properties["GenerateSecretString"].(map[string]any)
		assert.Equal(t, `{"username":"dbadmin"}`, secret["SecretStringTemplate"])
		assert.Equal(t, "password", secret["GenerateStringKey"])
		assert.EqualValues(t, 30, secret["PasswordLength"])

		attach := tmpl.Resources[DBSecretAttachID].Properties
		assert.Equal(t, ref(DBSecretID), attach["SecretId"])
		assert.Equal(t, ref(DBInstanceID), attach["TargetId"])

		db := tmpl.Resources[DBInstanceID].Properties
		password, err := json.Marshal(db["MasterUserPassword"])
		require.NoError(t, err)
		assert.Contains(t, string(password), "resolve:secretsmanager:")
		assert.Contains(t, string(password), ":SecretString:password}}")
		assert.NotContains(t, db, "ManageMasterUserPassword")

		assert.Equal(t, ref(DBSecretAttachID), tmpl.Outputs[ExportDBSecretArn].Value)
	})

	t.Run("managed", func(t *testing.T) {
		tmpl := buildWith(t, func(c *config.Config) { c.Database.Credentials = config.CredentialsManaged }, nil)

		assert.NotContains(t, tmpl.Resources, DBSecretID)
		assert.NotContains(t, tmpl.Resources, DBSecretAttachID)

		db := tmpl.Resources[DBInstanceID].Properties
		assert.Equal(t, true, db["ManageMasterUserPassword"])
		assert.Equal(t, "dbadmin", db["MasterUsername"])
		assert.NotContains(t, db, "MasterUserPassword")

		assert.Equal(t, getAtt(DBInstanceID, "MasterUserSecret.SecretArn"), tmpl.Outputs[ExportDBSecretArn].Value)
	})

	t.Run("parameter", func(t *testing.T) {
		tmpl := buildWith(t, func(c *config.Config) { c.Database.Credentials = config.CredentialsParameter }, nil)

		assert.NotContains(t, tmpl.Resources, DBSecretID)
		param := tmpl.Parameters[DBPasswordParamID]
		assert.True(t, param.NoEcho)
		require.NotNil(t, param.MinLength)
		assert.Equal(t, 8, *param.MinLength)

		assert.Equal(t, ref(DBPasswordParamID), tmpl.Resources[DBInstanceID].Properties["MasterUserPassword"])
		assert.NotContains(t, tmpl.Outputs, ExportDBSecretArn)
	})
}

func TestBuild_Outputs(t *testing.T) {
	cfg := config.Defaults()
	tmpl := buildWith(t, nil, nil)

	expected := ExpectedExports(cfg)
	require.Len(t, expected, 11)
	require.Len(t, tmpl.Outputs, len(expected))
	for _, name := range expected {
		out, ok := tmpl.Outputs[name]
		require.True(t, ok, name)
		assert.Equal(t, name, out.ExportName())
	}

	assert.Equal(t, ref(TableID), tmpl.Outputs[ExportTableName].Value)
	assert.Equal(t, ref(EventBusID), tmpl.Outputs[ExportEventBusName].Value)
	assert.Equal(t, getAtt(DBInstanceID, "Endpoint.Port"), tmpl.Outputs[ExportDBPort].Value)
	assert.Equal(t, "appointment_db", tmpl.Outputs[ExportDBName].Value)

	asArn := buildWith(t, func(c *config.Config) { c.Outputs.EventBusNameAsArn = true }, nil)
	assert.Equal(t, getAtt(EventBusID, "Arn"), asArn.Outputs[ExportEventBusName].Value)
}

func TestBuild_Order(t *testing.T) {
	_, b, err := Build(Props{Config: config.Defaults()})
	require.NoError(t, err)

	order := b.Order()
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	before := [][2]string{
		{TopicID, QueuePESubID},
		{QueuePEPolicyID, QueuePESubID},
		{QueueCLPolicyID, QueueCLSubID},
		{BackupQueueID, RuleID},
		{RuleID, BackupQueuePolicyID},
		{SecurityGroupID, DBInstanceID},
		{DBSubnetGroupID, DBInstanceID},
		{DBSecretID, DBInstanceID},
		{DBInstanceID, DBSecretAttachID},
	}
	for _, pair := range before {
		assert.Less(t, position[pair[0]], position[pair[1]], "%s before %s", pair[0], pair[1])
	}
}

func TestBuild_Idempotent(t *testing.T) {
	cfg := config.Defaults()
	cfg.Stack.Tags = []config.Tag{{Key: "Project", Value: "appointments"}}

	first, _, err := Build(Props{Config: cfg})
	require.NoError(t, err)
	second, _, err := Build(Props{Config: cfg})
	require.NoError(t, err)

	a, err := template.ToJSON(first)
	require.NoError(t, err)
	b, err := template.ToJSON(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.Credentials = "vault"

	_, err := New(Props{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.credentials")
}
