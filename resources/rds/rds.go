// Package rds provides Go types for AWS::RDS resources.
package rds

// DBSubnetGroup represents AWS::RDS::DBSubnetGroup.
// Ref returns the subnet group name.
type DBSubnetGroup struct {
	DBSubnetGroupDescription any   `json:"DBSubnetGroupDescription"`
	DBSubnetGroupName        any   `json:"DBSubnetGroupName,omitempty"`
	SubnetIds                any   `json:"SubnetIds"`
	Tags                     []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r DBSubnetGroup) ResourceType() string { return "AWS::RDS::DBSubnetGroup" }

// DBInstance represents AWS::RDS::DBInstance.
// Ref returns the instance identifier.
type DBInstance struct {
	DBInstanceIdentifier     any   `json:"DBInstanceIdentifier,omitempty"`
	DBInstanceClass          any   `json:"DBInstanceClass"`
	Engine                   any   `json:"Engine"`
	EngineVersion            any   `json:"EngineVersion,omitempty"`
	DBName                   any   `json:"DBName,omitempty"`
	Port                     any   `json:"Port,omitempty"`
	AllocatedStorage         any   `json:"AllocatedStorage,omitempty"`
	MaxAllocatedStorage      any   `json:"MaxAllocatedStorage,omitempty"`
	StorageType              any   `json:"StorageType,omitempty"`
	StorageEncrypted         any   `json:"StorageEncrypted,omitempty"`
	MultiAZ                  any   `json:"MultiAZ,omitempty"`
	PubliclyAccessible       any   `json:"PubliclyAccessible,omitempty"`
	MasterUsername           any   `json:"MasterUsername,omitempty"`
	MasterUserPassword       any   `json:"MasterUserPassword,omitempty"`
	ManageMasterUserPassword any   `json:"ManageMasterUserPassword,omitempty"`
	DBSubnetGroupName        any   `json:"DBSubnetGroupName,omitempty"`
	VPCSecurityGroups        []any `json:"VPCSecurityGroups,omitempty"`
	BackupRetentionPeriod    any   `json:"BackupRetentionPeriod,omitempty"`
	CopyTagsToSnapshot       any   `json:"CopyTagsToSnapshot,omitempty"`
	DeletionProtection       any   `json:"DeletionProtection,omitempty"`
	AutoMinorVersionUpgrade  any   `json:"AutoMinorVersionUpgrade,omitempty"`
	Tags                     []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r DBInstance) ResourceType() string { return "AWS::RDS::DBInstance" }

// Attributes returns the GetAtt attribute names.
func (r DBInstance) Attributes() []string {
	return []string{
		"DBInstanceArn",
		"DbiResourceId",
		"Endpoint.Address",
		"Endpoint.HostedZoneId",
		"Endpoint.Port",
		"MasterUserSecret.SecretArn",
	}
}
