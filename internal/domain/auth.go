package domain

// Role differentiates the three principal kinds.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleSubAgent Role = "sub-agent"
)

// AssignmentField names the task column a distribution writes.
type AssignmentField string

const (
	AssignToAgent    AssignmentField = "assigned_agent_id"
	AssignToSubAgent AssignmentField = "assigned_sub_agent_id"
)

// Capabilities describes what a role may do to other principals and tasks.
type Capabilities struct {
	// Manages is the role whose accounts this role may create, edit and delete.
	Manages Role
	// DistributesTo is the role that receives tasks this role uploads.
	DistributesTo Role
	// Target is the task field written when this role distributes.
	Target AssignmentField
	// ScopedToParent restricts management and distribution to principals whose
	// parent is the caller.
	ScopedToParent bool
}

var capabilityTable = map[Role]Capabilities{
	RoleAdmin:    {Manages: RoleAgent, DistributesTo: RoleAgent, Target: AssignToAgent},
	RoleAgent:    {Manages: RoleSubAgent, DistributesTo: RoleSubAgent, Target: AssignToSubAgent, ScopedToParent: true},
	RoleSubAgent: {},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := capabilityTable[r]
	return ok
}

// Capabilities returns the capability entry for r; unknown roles get none.
func (r Role) Capabilities() Capabilities {
	return capabilityTable[r]
}

// CanDistribute reports whether r may upload and split tasks.
func (r Role) CanDistribute() bool {
	return capabilityTable[r].DistributesTo != ""
}
