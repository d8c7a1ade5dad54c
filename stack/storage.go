package stack

import (
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	"github.com/appointment-stack/appointment-stack-go/resources/dynamodb"
)

// ----------------------------------------------------------------------------
// Appointments Table
// ----------------------------------------------------------------------------

// Key attributes of an appointment record. Every other attribute is schemaless.
const (
	AppointmentIDAttribute = "appointmentId"
	InsuredIDAttribute     = "insuredId"
	InsuredIDIndex         = "insuredId-index"
)

// AppointmentsTable is keyed on appointmentId with one global secondary
// index on insuredId projecting every attribute.
var AppointmentsTable = dynamodb.Table{
	TableName:   "Appointments",
	BillingMode: dynamodb.BillingModePayPerRequest,
	AttributeDefinitions: []dynamodb.Table_AttributeDefinition{
		{AttributeName: AppointmentIDAttribute, AttributeType: dynamodb.AttributeTypeString},
		{AttributeName: InsuredIDAttribute, AttributeType: dynamodb.AttributeTypeString},
	},
	KeySchema: []dynamodb.Table_KeySchema{
		{AttributeName: AppointmentIDAttribute, KeyType: dynamodb.KeyTypeHash},
	},
	GlobalSecondaryIndexes: []dynamodb.Table_GlobalSecondaryIndex{
		{
			IndexName: InsuredIDIndex,
			KeySchema: []dynamodb.Table_KeySchema{
				{AttributeName: InsuredIDAttribute, KeyType: dynamodb.KeyTypeHash},
			},
			Projection: dynamodb.Table_Projection{ProjectionType: dynamodb.ProjectionTypeAll},
		},
	},
}

func addTable(b *template.Builder) {
	b.SetResource(TableID, AppointmentsTable, template.WithRemovalPolicy("Retain"))
}
