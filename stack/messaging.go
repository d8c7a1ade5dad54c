package stack

import (
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
	"github.com/appointment-stack/appointment-stack-go/resources/sns"
	"github.com/appointment-stack/appointment-stack-go/resources/sqs"
)

// ----------------------------------------------------------------------------
// Notification Fan-out
// ----------------------------------------------------------------------------

// AppointmentTopic broadcasts appointment notifications to the country queues.
var AppointmentTopic = sns.Topic{}

// fanoutQueues maps each subscribed queue to its subscription and policy IDs.
var fanoutQueues = []struct {
	queue, subscription, policy string
}{
	{QueuePEID, QueuePESubID, QueuePEPolicyID},
	{QueueCLID, QueueCLSubID, QueueCLPolicyID},
}

func addFanout(b *template.Builder) {
	b.SetResource(TopicID, AppointmentTopic)

	for _, q := range fanoutQueues {
		b.SetResource(q.queue, sqs.Queue{}, template.WithRemovalPolicy("Delete"))

		b.SetResource(q.subscription, sns.Subscription{
			Protocol: sns.ProtocolSQS,
			TopicArn: Ref{LogicalName: TopicID},
			Endpoint: GetAtt{LogicalName: q.queue, Attribute: "Arn"},
		}, template.WithDependsOn(q.policy))

		b.SetResource(q.policy, sendMessagePolicy(q.queue, "sns.amazonaws.com", Ref{LogicalName: TopicID}))
	}
}

// sendMessagePolicy grants a service principal sqs:SendMessage on a queue
// when the request comes from sourceArn.
func sendMessagePolicy(queue, service string, sourceArn any) sqs.QueuePolicy {
	return sqs.QueuePolicy{
		PolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect:    "Allow",
			Principal: ServicePrincipal{service},
			Action:    "sqs:SendMessage",
			Resource:  GetAtt{LogicalName: queue, Attribute: "Arn"},
			Condition: Json{
				ArnEquals: Json{"aws:SourceArn": sourceArn},
			},
		}),
		Queues: []any{Ref{LogicalName: queue}},
	}
}
