package stack

import (
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	"github.com/appointment-stack/appointment-stack-go/resources/ec2"
)

// ----------------------------------------------------------------------------
// Database Security Group
// ----------------------------------------------------------------------------

// ingressSource returns the CIDR admitted on the database port: any IPv4
// address when public ingress is allowed, else the configured CIDR, else
// the VPC CIDR.
func ingressSource(cfg config.DatabaseConfig, net network) any {
	switch {
	case cfg.AllowPublicIngress:
		return ec2.AnyIPv4
	case cfg.IngressCIDR != "":
		return cfg.IngressCIDR
	default:
		return net.VpcCIDR
	}
}

func addSecurityGroup(b *template.Builder, cfg config.DatabaseConfig, net network) {
	b.SetResource(SecurityGroupID, ec2.SecurityGroup{
		GroupDescription: "Access to the appointment database",
		VpcId:            net.VpcID,
		SecurityGroupIngress: []ec2.SecurityGroup_Ingress{
			{
				Description: "MySQL clients",
				IpProtocol:  ec2.ProtocolTCP,
				FromPort:    cfg.Port,
				ToPort:      cfg.Port,
				CidrIp:      ingressSource(cfg, net),
			},
		},
		SecurityGroupEgress: []ec2.SecurityGroup_Egress{
			{
				Description: "Allow all outbound traffic by default",
				IpProtocol:  ec2.ProtocolAll,
				CidrIp:      ec2.AnyIPv4,
			},
		},
	})
}
