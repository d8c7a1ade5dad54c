package stack

import (
	"fmt"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
	"github.com/appointment-stack/appointment-stack-go/resources/rds"
	"github.com/appointment-stack/appointment-stack-go/resources/secretsmanager"
)

// ----------------------------------------------------------------------------
// Appointment Database
// ----------------------------------------------------------------------------

// passwordExcludeCharacters are left out of generated passwords so the
// password is safe in connection strings and shells.
const passwordExcludeCharacters = " %+~`#$&*()|[]{}:;<>?!'/@\"\\"

// credentials returns the master username and password values for the
// configured credential mode and registers what the mode needs.
func credentials(b *template.Builder, cfg config.DatabaseConfig) (username, password, managed any) {
	switch cfg.Credentials {
	case config.CredentialsManaged:
		return cfg.Username, nil, true

	case config.CredentialsParameter:
		b.SetParameter(DBPasswordParamID, appointment.Parameter{
			Type:        "String",
			Description: "Master password of the appointment database",
			MinLength:   IntPtr(8),
			NoEcho:      true,
		})
		return cfg.Username, Param(DBPasswordParamID), nil
	}

	b.SetResource(DBSecretID, secretsmanager.Secret{
		Description: Sub{String: "Generated by the CloudFormation stack ${AWS::StackName}"},
		GenerateSecretString: &secretsmanager.Secret_GenerateSecretString{
			SecretStringTemplate: fmt.Sprintf(`{"username":%q}`, cfg.Username),
			GenerateStringKey:    "password",
			PasswordLength:       30,
			ExcludeCharacters:    passwordExcludeCharacters,
		},
	}, template.WithRemovalPolicy("Delete"))
	b.SetResource(DBSecretAttachID, secretsmanager.SecretTargetAttachment{
		SecretId:   Ref{LogicalName: DBSecretID},
		TargetId:   Ref{LogicalName: DBInstanceID},
		TargetType: secretsmanager.TargetTypeDBInstance,
	})
	return ResolveSecret(DBSecretID, "username"), ResolveSecret(DBSecretID, "password"), nil
}

func addDatabase(b *template.Builder, cfg config.DatabaseConfig, net network) {
	b.SetResource(DBSubnetGroupID, rds.DBSubnetGroup{
		DBSubnetGroupDescription: "Subnet group for AppointmentDB database",
		SubnetIds:                net.SubnetIDs,
	})

	username, password, managed := credentials(b, cfg)

	var maxStorage any
	if cfg.MaxAllocatedStorage > 0 {
		maxStorage = cfg.MaxAllocatedStorage
	}

	b.SetResource(DBInstanceID, rds.DBInstance{
		DBInstanceClass:          cfg.InstanceClass,
		Engine:                   cfg.Engine,
		EngineVersion:            cfg.EngineVersion,
		DBName:                   cfg.Name,
		Port:                     fmt.Sprint(cfg.Port),
		AllocatedStorage:         fmt.Sprint(cfg.AllocatedStorage),
		MaxAllocatedStorage:      maxStorage,
		StorageType:              "gp2",
		MultiAZ:                  cfg.MultiAZ,
		PubliclyAccessible:       cfg.PubliclyAccessible,
		MasterUsername:           username,
		MasterUserPassword:       password,
		ManageMasterUserPassword: managed,
		DBSubnetGroupName:        Ref{LogicalName: DBSubnetGroupID},
		VPCSecurityGroups:        []any{GetAtt{LogicalName: SecurityGroupID, Attribute: "GroupId"}},
		CopyTagsToSnapshot:       true,
	}, template.WithRemovalPolicy("Delete"))
}
