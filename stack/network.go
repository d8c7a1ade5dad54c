package stack

import (
	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
)

// network holds the template values that place the database: literals in
// static and lookup modes, parameter references in parameter mode.
type network struct {
	VpcID     any
	SubnetIDs any
	VpcCIDR   any
}

// ----------------------------------------------------------------------------
// Network Boundary
// ----------------------------------------------------------------------------

func addNetwork(b *template.Builder, cfg config.NetworkConfig, resolved *lookup.Network) (network, error) {
	switch cfg.Mode {
	case config.NetworkStatic:
		return network{
			VpcID:     cfg.VpcID,
			SubnetIDs: stringsToAny(cfg.SubnetIDs),
			VpcCIDR:   cfg.VpcCIDR,
		}, nil

	case config.NetworkLookup:
		if resolved == nil {
			return network{}, ErrMissingNetwork
		}
		return network{
			VpcID:     resolved.VpcID,
			SubnetIDs: stringsToAny(resolved.SubnetIDs),
			VpcCIDR:   resolved.VpcCIDR,
		}, nil
	}

	b.SetParameter(VpcIDParamID, appointment.Parameter{
		Type:        "AWS::EC2::VPC::Id",
		Description: "VPC hosting the appointment database",
	})
	b.SetParameter(SubnetIDsParamID, appointment.Parameter{
		Type:        "List<AWS::EC2::Subnet::Id>",
		Description: "Subnets of the appointment database subnet group",
	})
	b.SetParameter(VpcCIDRParamID, appointment.Parameter{
		Type:        "String",
		Description: "CIDR block admitted on the database port",
		Default:     cfg.VpcCIDR,
	})
	return network{
		VpcID:     Param(VpcIDParamID),
		SubnetIDs: Param(SubnetIDsParamID),
		VpcCIDR:   Param(VpcCIDRParamID),
	}, nil
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
