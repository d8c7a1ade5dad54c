package stack

import (
	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
)

// ----------------------------------------------------------------------------
// Stack Exports
// ----------------------------------------------------------------------------

// export is a stack output exported under its own logical ID.
func export(b *template.Builder, name string, value any) {
	b.SetOutput(name, appointment.Output{
		Value:  value,
		Export: &appointment.Export{Name: name},
	})
}

func addOutputs(b *template.Builder, cfg config.Config) {
	export(b, ExportTableName, Ref{LogicalName: TableID})
	export(b, ExportTopicArn, Ref{LogicalName: TopicID})
	export(b, ExportQueuePE, GetAtt{LogicalName: QueuePEID, Attribute: "Arn"})
	export(b, ExportQueueCL, GetAtt{LogicalName: QueueCLID, Attribute: "Arn"})
	export(b, ExportEventBusArn, GetAtt{LogicalName: EventBusID, Attribute: "Arn"})

	var busName any = Ref{LogicalName: EventBusID}
	if cfg.Outputs.EventBusNameAsArn {
		busName = GetAtt{LogicalName: EventBusID, Attribute: "Arn"}
	}
	export(b, ExportEventBusName, busName)

	export(b, ExportBackupQueueArn, GetAtt{LogicalName: BackupQueueID, Attribute: "Arn"})
	export(b, ExportDBEndpoint, GetAtt{LogicalName: DBInstanceID, Attribute: "Endpoint.Address"})
	export(b, ExportDBPort, GetAtt{LogicalName: DBInstanceID, Attribute: "Endpoint.Port"})
	export(b, ExportDBName, cfg.Database.Name)

	switch cfg.Database.Credentials {
	case config.CredentialsGenerated:
		// Ref of the attachment is the secret ARN once connection details are attached.
		export(b, ExportDBSecretArn, Ref{LogicalName: DBSecretAttachID})
	case config.CredentialsManaged:
		export(b, ExportDBSecretArn, GetAtt{LogicalName: DBInstanceID, Attribute: "MasterUserSecret.SecretArn"})
	}
}

// ExpectedExports returns the export names the stack declares for the
// configuration, in declaration order.
func ExpectedExports(cfg config.Config) []string {
	names := []string{
		ExportTableName,
		ExportTopicArn,
		ExportQueuePE,
		ExportQueueCL,
		ExportEventBusArn,
		ExportEventBusName,
		ExportBackupQueueArn,
		ExportDBEndpoint,
		ExportDBPort,
		ExportDBName,
	}
	if cfg.Database.Credentials != config.CredentialsParameter {
		names = append(names, ExportDBSecretArn)
	}
	return names
}
