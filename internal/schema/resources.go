package schema

var (
	str     = PropertySchema{Type: "String"}
	integer = PropertySchema{Type: "Integer"}
	boolean = PropertySchema{Type: "Boolean"}
	list    = PropertySchema{Type: "List"}
	object  = PropertySchema{Type: "Map"}
	jsonDoc = PropertySchema{Type: "Json"}
)

// resourceSchemas covers the resource types of the appointment stack.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::DynamoDB::Table": {
		Type:     "AWS::DynamoDB::Table",
		Required: []string{"KeySchema"},
		Properties: map[string]PropertySchema{
			"TableName":                        str,
			"BillingMode":                      {Type: "String", AllowedValues: []string{"PAY_PER_REQUEST", "PROVISIONED"}},
			"AttributeDefinitions":             list,
			"KeySchema":                        list,
			"GlobalSecondaryIndexes":           list,
			"ProvisionedThroughput":            object,
			"PointInTimeRecoverySpecification": object,
			"SSESpecification":                 object,
			"StreamSpecification":              object,
			"DeletionProtectionEnabled":        boolean,
			"Tags":                             list,
		},
	},
	"AWS::SNS::Topic": {
		Type: "AWS::SNS::Topic",
		Properties: map[string]PropertySchema{
			"TopicName":      str,
			"DisplayName":    str,
			"KmsMasterKeyId": str,
			"FifoTopic":      boolean,
			"TracingConfig":  {Type: "String", AllowedValues: []string{"PassThrough", "Active"}},
			"Tags":           list,
		},
	},
	"AWS::SNS::Subscription": {
		Type:     "AWS::SNS::Subscription",
		Required: []string{"Protocol", "TopicArn"},
		Properties: map[string]PropertySchema{
			"Protocol": {Type: "String", AllowedValues: []string{
				"http", "https", "email", "email-json", "sms", "sqs", "application", "lambda", "firehose",
			}},
			"TopicArn":           str,
			"Endpoint":           str,
			"RawMessageDelivery": boolean,
			"FilterPolicy":       jsonDoc,
			"FilterPolicyScope":  {Type: "String", AllowedValues: []string{"MessageAttributes", "MessageBody"}},
			"RedrivePolicy":      jsonDoc,
			"Region":             str,
		},
	},
	"AWS::SQS::Queue": {
		Type: "AWS::SQS::Queue",
		Properties: map[string]PropertySchema{
			"QueueName":                     str,
			"FifoQueue":                     boolean,
			"VisibilityTimeout":             integer,
			"MessageRetentionPeriod":        integer,
			"ReceiveMessageWaitTimeSeconds": integer,
			"SqsManagedSseEnabled":          boolean,
			"KmsMasterKeyId":                str,
			"RedrivePolicy":                 jsonDoc,
			"Tags":                          list,
		},
	},
	"AWS::SQS::QueuePolicy": {
		Type:     "AWS::SQS::QueuePolicy",
		Required: []string{"PolicyDocument", "Queues"},
		Properties: map[string]PropertySchema{
			"PolicyDocument": jsonDoc,
			"Queues":         list,
		},
	},
	"AWS::Events::EventBus": {
		Type:     "AWS::Events::EventBus",
		Required: []string{"Name"},
		Properties: map[string]PropertySchema{
			"Name":             str,
			"Description":      str,
			"EventSourceName":  str,
			"DeadLetterConfig": object,
			"Tags":             list,
		},
	},
	"AWS::Events::Rule": {
		Type: "AWS::Events::Rule",
		Properties: map[string]PropertySchema{
			"Name":               str,
			"Description":        str,
			"EventBusName":       str,
			"EventPattern":       jsonDoc,
			"ScheduleExpression": str,
			"State": {Type: "String", AllowedValues: []string{
				"ENABLED", "DISABLED", "ENABLED_WITH_ALL_CLOUDTRAIL_MANAGEMENT_EVENTS",
			}},
			"Targets": list,
		},
	},
	"AWS::EC2::SecurityGroup": {
		Type:     "AWS::EC2::SecurityGroup",
		Required: []string{"GroupDescription"},
		Properties: map[string]PropertySchema{
			"GroupDescription":     str,
			"GroupName":            str,
			"VpcId":                str,
			"SecurityGroupIngress": list,
			"SecurityGroupEgress":  list,
			"Tags":                 list,
		},
	},
	"AWS::EC2::SecurityGroupIngress": {
		Type:     "AWS::EC2::SecurityGroupIngress",
		Required: []string{"IpProtocol"},
		Properties: map[string]PropertySchema{
			"GroupId":               str,
			"IpProtocol":            str,
			"FromPort":              integer,
			"ToPort":                integer,
			"CidrIp":                str,
			"CidrIpv6":              str,
			"SourceSecurityGroupId": str,
			"Description":           str,
		},
	},
	"AWS::RDS::DBSubnetGroup": {
		Type:     "AWS::RDS::DBSubnetGroup",
		Required: []string{"DBSubnetGroupDescription", "SubnetIds"},
		Properties: map[string]PropertySchema{
			"DBSubnetGroupDescription": str,
			"DBSubnetGroupName":        str,
			"SubnetIds":                list,
			"Tags":                     list,
		},
	},
	"AWS::RDS::DBInstance": {
		Type:     "AWS::RDS::DBInstance",
		Required: []string{"DBInstanceClass", "Engine"},
		Properties: map[string]PropertySchema{
			"DBInstanceIdentifier": str,
			"DBInstanceClass":      str,
			"Engine": {Type: "String", AllowedValues: []string{
				"mysql", "mariadb", "postgres", "oracle-ee", "oracle-se2", "sqlserver-ee", "sqlserver-se", "sqlserver-ex", "sqlserver-web",
			}},
			"EngineVersion":            str,
			"DBName":                   str,
			"Port":                     str,
			"AllocatedStorage":         str,
			"MaxAllocatedStorage":      integer,
			"StorageType":              {Type: "String", AllowedValues: []string{"standard", "gp2", "gp3", "io1", "io2"}},
			"StorageEncrypted":         boolean,
			"MultiAZ":                  boolean,
			"PubliclyAccessible":       boolean,
			"MasterUsername":           str,
			"MasterUserPassword":       str,
			"ManageMasterUserPassword": boolean,
			"DBSubnetGroupName":        str,
			"VPCSecurityGroups":        list,
			"BackupRetentionPeriod":    integer,
			"CopyTagsToSnapshot":       boolean,
			"DeletionProtection":       boolean,
			"AutoMinorVersionUpgrade":  boolean,
			"Tags":                     list,
		},
	},
	"AWS::SecretsManager::Secret": {
		Type: "AWS::SecretsManager::Secret",
		Properties: map[string]PropertySchema{
			"Name":                 str,
			"Description":          str,
			"KmsKeyId":             str,
			"GenerateSecretString": object,
			"SecretString":         str,
			"Tags":                 list,
		},
	},
	"AWS::SecretsManager::SecretTargetAttachment": {
		Type:     "AWS::SecretsManager::SecretTargetAttachment",
		Required: []string{"SecretId", "TargetId", "TargetType"},
		Properties: map[string]PropertySchema{
			"SecretId": str,
			"TargetId": str,
			"TargetType": {Type: "String", AllowedValues: []string{
				"AWS::RDS::DBInstance", "AWS::RDS::DBCluster", "AWS::Redshift::Cluster", "AWS::DocDB::DBInstance", "AWS::DocDB::DBCluster",
			}},
		},
	},
}
