package stack

import (
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
	"github.com/appointment-stack/appointment-stack-go/resources/events"
	"github.com/appointment-stack/appointment-stack-go/resources/sqs"
)

// ----------------------------------------------------------------------------
// Event Routing
// ----------------------------------------------------------------------------

// RuleTargetID is the target ID of the backup queue on the forwarding rule.
const RuleTargetID = "Target0"

// ForwardRule forwards events published by source on the appointment bus to
// the backup queue. Events from any other source are dropped by this rule.
func ForwardRule(source string) events.Rule {
	return events.Rule{
		EventBusName: Ref{LogicalName: EventBusID},
		EventPattern: Json{"source": []any{source}},
		State:        events.StateEnabled,
		Targets: []events.Rule_Target{
			{Id: RuleTargetID, Arn: GetAtt{LogicalName: BackupQueueID, Attribute: "Arn"}},
		},
	}
}

func addEventRouting(b *template.Builder, cfg config.EventsConfig) {
	b.SetResource(EventBusID, events.EventBus{Name: cfg.BusName})
	b.SetResource(BackupQueueID, sqs.Queue{}, template.WithRemovalPolicy("Delete"))
	b.SetResource(RuleID, ForwardRule(cfg.Source))
	b.SetResource(BackupQueuePolicyID, sendMessagePolicy(BackupQueueID, "events.amazonaws.com",
		GetAtt{LogicalName: RuleID, Attribute: "Arn"}))
}
