package stack

// Logical IDs of the appointment stack. Resources reference each other by
// these names, never by string literals.
const (
	TableID = "Appointments"

	TopicID             = "AppointmentTopic"
	QueuePEID           = "QueuePE"
	QueueCLID           = "QueueCL"
	QueuePESubID        = "QueuePESubscription"
	QueueCLSubID        = "QueueCLSubscription"
	QueuePEPolicyID     = "QueuePEPolicy"
	QueueCLPolicyID     = "QueueCLPolicy"
	EventBusID          = "AppointmentEventBus"
	RuleID              = "ForwardToSqsRule"
	BackupQueueID       = "BackupQueue"
	BackupQueuePolicyID = "BackupQueuePolicy"

	SecurityGroupID   = "RdsSecurityGroup"
	DBSubnetGroupID   = "AppointmentDBSubnetGroup"
	DBSecretID        = "AppointmentDBSecret"
	DBSecretAttachID  = "AppointmentDBSecretAttachment"
	DBInstanceID      = "AppointmentDB"
	DBPasswordParamID = "DBMasterPassword"
	VpcIDParamID      = "VpcId"
	SubnetIDsParamID  = "SubnetIds"
	VpcCIDRParamID    = "VpcCidr"
)

// Export names.
const (
	ExportTableName      = "AppointmentsTableName"
	ExportTopicArn       = "AppointmentTopicArn"
	ExportQueuePE        = "QueuePEName"
	ExportQueueCL        = "QueueCLName"
	ExportEventBusArn    = "AppointmentEventBusArn"
	ExportEventBusName   = "AppointmentEventBusName"
	ExportBackupQueueArn = "BackupQueueArn"
	ExportDBEndpoint     = "AppointmentDbEndpoint"
	ExportDBPort         = "AppointmentDbPort"
	ExportDBName         = "AppointmentDbName"
	ExportDBSecretArn    = "AppointmentDbSecretArn"
)
