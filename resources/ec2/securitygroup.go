// Package ec2 provides Go types for AWS::EC2 resources.
package ec2

// IP protocols.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
	ProtocolAll = "-1"
)

// Well-known CIDR blocks.
const (
	AnyIPv4 = "0.0.0.0/0"
	AnyIPv6 = "::/0"
)

// SecurityGroup represents AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupDescription     any                     `json:"GroupDescription"`
	GroupName            any                     `json:"GroupName,omitempty"`
	VpcId                any                     `json:"VpcId,omitempty"`
	SecurityGroupIngress []SecurityGroup_Ingress `json:"SecurityGroupIngress,omitempty"`
	SecurityGroupEgress  []SecurityGroup_Egress  `json:"SecurityGroupEgress,omitempty"`
	Tags                 []any                   `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r SecurityGroup) ResourceType() string { return "AWS::EC2::SecurityGroup" }

// Attributes returns the GetAtt attribute names.
func (r SecurityGroup) Attributes() []string {
	return []string{"GroupId", "VpcId"}
}

// SecurityGroup_Ingress is an inbound rule.
type SecurityGroup_Ingress struct {
	Description           any    `json:"Description,omitempty"`
	IpProtocol            string `json:"IpProtocol"`
	FromPort              any    `json:"FromPort,omitempty"`
	ToPort                any    `json:"ToPort,omitempty"`
	CidrIp                any    `json:"CidrIp,omitempty"`
	CidrIpv6              any    `json:"CidrIpv6,omitempty"`
	SourceSecurityGroupId any    `json:"SourceSecurityGroupId,omitempty"`
}

// SecurityGroup_Egress is an outbound rule.
type SecurityGroup_Egress struct {
	Description any    `json:"Description,omitempty"`
	IpProtocol  string `json:"IpProtocol"`
	FromPort    any    `json:"FromPort,omitempty"`
	ToPort      any    `json:"ToPort,omitempty"`
	CidrIp      any    `json:"CidrIp,omitempty"`
	CidrIpv6    any    `json:"CidrIpv6,omitempty"`
}
